package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/oracle"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// ErrNoLLMProvider is returned when neither Gemini nor Bedrock is configured.
var ErrNoLLMProvider = errors.New("bootstrap: no llm provider configured")

// BedrockConverser is the slice of the Bedrock runtime client the oracle needs.
type BedrockConverser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BuildOracle wires the LLM-backed oracle. cfg.LLMProvider picks the primary
// provider; the other one, when configured, becomes the fallback. The returned
// cleanup releases provider clients and is never nil.
func BuildOracle(ctx context.Context, cfg *appconfig.Config, bedrock BedrockConverser, logger *logging.Logger) (oracle.Oracle, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var gemini, bedrockClient oracle.LLMClient
	cleanup := noop
	if cfg.GeminiAPIKey != "" {
		client, err := oracle.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		gemini = client
		cleanup = func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close gemini client", "error", err)
			}
		}
	}
	if bedrock != nil && cfg.BedrockModelID != "" {
		bedrockClient = oracle.NewBedrockLLMClient(bedrock).WithDefaultModel(cfg.BedrockModelID)
	}

	primary, fallback := gemini, bedrockClient
	primaryName, fallbackName := "gemini", "bedrock"
	if cfg.LLMProvider == "bedrock" {
		primary, fallback = bedrockClient, gemini
		primaryName, fallbackName = "bedrock", "gemini"
	}
	if primary == nil {
		primary, fallback = fallback, nil
		primaryName, fallbackName = fallbackName, ""
	}
	if primary == nil {
		return nil, noop, ErrNoLLMProvider
	}

	var client oracle.LLMClient = primary
	if fallback != nil {
		client = oracle.NewFallbackLLMClient(primary, fallback, logger)
	} else {
		fallbackName = "none"
	}
	logger.Info("llm oracle configured", "primary", primaryName, "fallback", fallbackName, "timeout", cfg.LLMTimeout)

	// Each client carries its own default model so a fallback hop never sends
	// the other provider's model id.
	return oracle.NewLLMOracle(client, oracle.Config{Timeout: cfg.LLMTimeout}, logger), cleanup, nil
}
