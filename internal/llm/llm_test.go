package llm

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("openai.api_key", "sk-test")
	viper.Set("openai.base_url", "http://localhost:1234/v1")
	viper.Set("openai.vision_model", "gpt-4o")
	viper.Set("openai.timeout", 5*time.Second)

	cfg := FromViper("openai.vision_model")
	assert.Equal(t, Config{
		APIKey:  "sk-test",
		BaseURL: "http://localhost:1234/v1",
		Model:   "gpt-4o",
		Timeout: 5 * time.Second,
	}, cfg)
}

func TestNewChatModel(t *testing.T) {
	_, err := NewChatModel(context.Background(), Config{Model: "gpt-4o"})
	require.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewChatModel(context.Background(), Config{APIKey: "sk-test"})
	require.Error(t, err)

	m, err := NewChatModel(context.Background(), Config{APIKey: "sk-test", Model: "gpt-4o", BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
