package naming

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultModel is used when the configuration names no model.
	DefaultModel = "claude-haiku-4-5"

	defaultMaxOutputTokens = 32

	systemPrompt = "You name Go methods. Reply with a single lowerCamelCase Go identifier " +
		"that describes what the given method body does. No explanation, no punctuation."
)

// AnthropicNamer asks a Claude model for a method name.
type AnthropicNamer struct {
	client anthropic.Client
	model  string
}

// AnthropicConfig configures the Anthropic namer.
type AnthropicConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL string
}

// NewAnthropicNamer creates a namer. Without an API key the SDK falls back
// to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicNamer(cfg AnthropicConfig) *AnthropicNamer {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicNamer{client: anthropic.NewClient(opts...), model: model}
}

// SuggestName implements Namer.
func (n *AnthropicNamer) SuggestName(ctx context.Context, body string) (string, error) {
	message, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: defaultMaxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("func _() " + body)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to suggest name: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty name suggestion")
	}
	return text.String(), nil
}
