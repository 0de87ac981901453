// Package generator asks the text model for an SEO title and description
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	SystemPrompt = "You are a helpful assistant that generates SEO friendly product titles and descriptions."
	MaxTokens    = 1000
)

var ErrGeneration = errors.New("failed to generate SEO content")

// Content is the parsed model reply
type Content struct {
	Title       string `json:"outputTitle"`
	Description string `json:"outputDescription"`
}

type Generator struct {
	Model     model.BaseChatModel
	MaxTokens int
	Timeout   time.Duration
}

func New(m model.BaseChatModel, timeout time.Duration) *Generator {
	return &Generator{
		Model:     m,
		MaxTokens: MaxTokens,
		Timeout:   timeout,
	}
}

// Generate sends instruction to the model and splits the reply into a
// title and a description
func (g *Generator) Generate(ctx context.Context, instruction string) (Content, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	resp, err := g.Model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(SystemPrompt),
		schema.UserMessage(instruction),
	}, model.WithMaxTokens(g.MaxTokens))
	if err != nil {
		return Content{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	if resp == nil {
		return Content{}, fmt.Errorf("%w: unexpected response format, no choices", ErrGeneration)
	}

	if strings.TrimSpace(resp.Content) == "" {
		return Content{}, fmt.Errorf("%w: unexpected response format, no message content", ErrGeneration)
	}

	return ParseReply(resp.Content), nil
}

// ParseReply splits text on its first blank line. The first part becomes
// the title, the rest the description. Without a blank line the whole
// text is the title.
func ParseReply(text string) Content {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	title, description, _ := strings.Cut(text, "\n\n")

	return Content{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
}
