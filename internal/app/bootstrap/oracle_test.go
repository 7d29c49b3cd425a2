package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/oracle"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

type fakeConverser struct {
	models []string
}

func (f *fakeConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.models = append(f.models, aws.ToString(in.ModelId))
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "end"}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
	}, nil
}

func TestBuildOracleRequiresConfig(t *testing.T) {
	_, cleanup, err := BuildOracle(context.Background(), nil, nil, logging.New("error"))
	require.Error(t, err)
	require.NotNil(t, cleanup)
	cleanup()
}

func TestBuildOracleNoProvider(t *testing.T) {
	cfg := &appconfig.Config{LLMProvider: "gemini", BedrockModelID: "amazon.nova-lite"}

	// A Bedrock model id without a runtime client is not a usable provider.
	_, _, err := BuildOracle(context.Background(), cfg, nil, logging.New("error"))
	assert.ErrorIs(t, err, ErrNoLLMProvider)
}

func TestBuildOracleBedrockOnly(t *testing.T) {
	api := &fakeConverser{}
	cfg := &appconfig.Config{LLMProvider: "gemini", BedrockModelID: "amazon.nova-lite"}

	o, cleanup, err := BuildOracle(context.Background(), cfg, api, logging.New("error"))
	require.NoError(t, err)
	defer cleanup()
	require.IsType(t, &oracle.LLMOracle{}, o)

	intent, err := o.Classify(context.Background(), "bye", "idle")
	require.NoError(t, err)
	assert.Equal(t, oracle.IntentEnd, intent)
	assert.Equal(t, []string{"amazon.nova-lite"}, api.models)
}
