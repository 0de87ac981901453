// Package caption describes product images with a vision capable chat model
package caption

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Question is what the model is asked about every image
const Question = "What’s in this image?"

const fallbackMime = "image/jpeg"

// ErrCaption marks every failure of Caption, fetch errors included
var ErrCaption = errors.New("failed to generate image description")

// FetchError is returned when the image URL answered with a non 2xx status
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch image, status: %d", e.Status)
}

type Captioner struct {
	Model  model.BaseChatModel
	Client *http.Client
	// Timeout bounds the download and the model call separately
	Timeout time.Duration
}

func New(m model.BaseChatModel, client *http.Client, timeout time.Duration) *Captioner {
	if client == nil {
		client = http.DefaultClient
	}

	return &Captioner{
		Model:   m,
		Client:  client,
		Timeout: timeout,
	}
}

// Caption downloads the image at imageURL, inlines it as base64 data and
// returns the model's trimmed description of it
func (c *Captioner) Caption(ctx context.Context, imageURL string) (string, error) {
	data, err := c.fetch(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCaption, err)
	}

	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeText,
				Text: Question,
			},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL: DataURL(data),
				},
			},
		},
	}

	mctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.Model.Generate(mctx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCaption, err)
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrCaption)
	}

	return strings.TrimSpace(resp.Content), nil
}

func (c *Captioner) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: imageURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	zap.L().Debug("Fetched image", zap.String("url", imageURL), zap.Int("bytes", len(data)))

	return data, nil
}

func (c *Captioner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.Timeout)
}

// DataURL encodes data as an inline base64 URL. The MIME type is sniffed
// from the bytes and falls back to JPEG for anything that isn't an image.
func DataURL(data []byte) string {
	mime := fallbackMime
	if m := mimetype.Detect(data); strings.HasPrefix(m.String(), "image/") {
		mime = m.String()
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
