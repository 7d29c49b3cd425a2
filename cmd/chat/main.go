// Command chat runs the booking agent as a terminal conversation. It uses the
// same configuration as the API server but keeps session state in memory
// unless Redis or Postgres is configured.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/appointment-agent/cmd/mainconfig"
	"github.com/wolfman30/appointment-agent/internal/app/bootstrap"
	"github.com/wolfman30/appointment-agent/internal/appointments"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/internal/webchat"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const banner = "Appointment assistant. Ask about a doctor's availability; type 'quit' to leave."

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	// Logs go to stderr so they do not interleave with the conversation.
	logger := logging.NewWithWriter(os.Stderr, envOr("CHAT_LOG_LEVEL", "warn"))

	ctx := context.Background()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	store, err := bootstrap.BuildAppointmentStore(ctx, cfg, nil, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load appointments:", err)
		os.Exit(1)
	}
	sessions, history := bootstrap.BuildSessionStores(cfg, redisClient, nil, logger)

	bedrock, err := mainconfig.BedrockClient(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load aws config:", err)
		os.Exit(1)
	}
	var converser bootstrap.BedrockConverser
	if bedrock != nil {
		converser = bedrock
	}
	llmOracle, closeOracle, err := bootstrap.BuildOracle(ctx, cfg, converser, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "set GEMINI_API_KEY or BEDROCK_MODEL_ID:", err)
		os.Exit(1)
	}
	defer closeOracle()

	agent := dialogue.NewAgent(dialogue.Deps{
		Oracle:   llmOracle,
		Resolver: appointments.NewResolver(store, logger),
		Engine:   appointments.NewEngine(store, logger),
		Sessions: sessions,
		Turns:    history,
		Logger:   logger,
	})

	if err := repl(ctx, os.Stdin, os.Stdout, agent, os.Getenv("CHAT_SESSION_ID")); err != nil {
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(1)
	}
}

// repl reads one user turn per line until EOF or a quit command. An empty
// sessionID lets the agent allocate one on the first turn.
func repl(ctx context.Context, in io.Reader, out io.Writer, agent webchat.Turner, sessionID string) error {
	fmt.Fprintln(out, banner)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		reply, err := agent.HandleTurn(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "agent> (error: %v)\n", err)
			continue
		}
		sessionID = reply.SessionID
		fmt.Fprintf(out, "agent> %s\n", reply.Text)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
