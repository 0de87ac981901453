// Package llm builds the chat models used for captioning and text generation.
// Any OpenAI compatible endpoint works through base_url.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"
)

var ErrNoAPIKey = errors.New("openai api key not configured")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// FromViper reads the provider settings, picking the model stored under modelKey
func FromViper(modelKey string) Config {
	return Config{
		APIKey:  viper.GetString("openai.api_key"),
		BaseURL: viper.GetString("openai.base_url"),
		Model:   viper.GetString(modelKey),
		Timeout: viper.GetDuration("openai.timeout"),
	}
}

// NewChatModel returns a chat model talking to the configured endpoint
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		return nil, errors.New("no model name configured")
	}

	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.Model, err)
	}

	return m, nil
}
