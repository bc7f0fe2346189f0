// Package llm 提供调用大语言模型生成文本的客户端。
package llm

import (
	"context"
	"errors"
	"strings"

	"helpdesk-go/internal/config"
)

// ErrNotConfigured 表示未配置文本生成服务。
var ErrNotConfigured = errors.New("text generation is not configured")

// MessageWriter defines an interface for writing WebSocket messages.
// This allows both a standard websocket.Conn and our interceptor to be used.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Synthesizer 根据提示生成文本。
type Synthesizer interface {
	// Synthesize 一次性返回完整文本。
	Synthesize(ctx context.Context, system, prompt string) (string, error)
	// StreamSynthesize 将生成的文本分块写入 writer。
	StreamSynthesize(ctx context.Context, system, prompt string, writer MessageWriter) error
}

// NewSynthesizer 按 provider 创建客户端。未配置 APIKey 时返回 ErrNotConfigured。
func NewSynthesizer(cfg config.LLMConfig) (Synthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	case "", "openai", "deepseek":
		return NewOpenAIClient(cfg), nil
	}
	return nil, errors.New("unknown llm provider: " + cfg.Provider)
}
