package llm

import (
	"context"
	"fmt"
	"strings"

	"helpdesk-go/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gorilla/websocket"
)

const defaultAnthropicMaxTokens = 1024

type anthropicClient struct {
	cfg    config.LLMConfig
	client anthropic.Client
}

// NewAnthropicClient 创建 Anthropic Messages API 客户端。BaseURL 非空时覆盖默认地址。
func NewAnthropicClient(cfg config.LLMConfig) Synthesizer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicClient{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}
}

func (c *anthropicClient) params(system, prompt string) anthropic.MessageNewParams {
	maxTokens := int64(defaultAnthropicMaxTokens)
	if c.cfg.Generation.MaxTokens > 0 {
		maxTokens = int64(c.cfg.Generation.MaxTokens)
	}
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.cfg.Generation.Temperature != 0 {
		p.Temperature = anthropic.Float(c.cfg.Generation.Temperature)
	}
	return p
}

// Synthesize 调用 Messages API 并返回第一段文本内容。
func (c *anthropicClient) Synthesize(ctx context.Context, system, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, c.params(system, prompt))
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no text content in anthropic response")
	}
	return sb.String(), nil
}

// StreamSynthesize 以流式方式调用 Messages API，将文本增量写入 writer。
func (c *anthropicClient) StreamSynthesize(ctx context.Context, system, prompt string, writer MessageWriter) error {
	stream := c.client.Messages.NewStreaming(ctx, c.params(system, prompt))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				if err := writer.WriteMessage(websocket.TextMessage, []byte(delta.Text)); err != nil {
					return fmt.Errorf("failed to write message to websocket: %w", err)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream error: %w", err)
	}
	return nil
}
