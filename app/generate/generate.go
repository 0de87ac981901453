// Package generate serves the SEO content generation endpoint
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"marukatte/seo-api/internal"
	"marukatte/seo-api/internal/prompt"
	"marukatte/seo-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	msgEmailRequired = "Email is required"
	msgInvalidBody   = "Invalid request body"
	msgQuotaExceeded = "Usage limit exceeded. Please sign up on Marukatte app to generate more."
	msgCaptionFailed = "Failed to generate image description"
	msgContentFailed = "Failed to generate SEO content"
)

// ImageReference points at the image the form uploaded. Older clients send
// a bare URL string (or "" when no file was picked) instead of an object.
type ImageReference struct {
	PublicURL string `json:"publicUrl"`
	// Path is the storage key, when the client knows it
	Path string `json:"path,omitempty"`
}

func (r *ImageReference) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		r.PublicURL = s
		return nil
	}

	type plain ImageReference
	return json.Unmarshal(b, (*plain)(r))
}

type submission struct {
	Email       string          `json:"email" binding:"required"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Prompt      string          `json:"prompt"`
	ImageURL    *ImageReference `json:"imageUrl"`
}

func (s *submission) hasImage() bool {
	return s.ImageURL != nil && (s.ImageURL.PublicURL != "" || s.ImageURL.Path != "")
}

// Generate handles POST /api/generate. Once the body names an uploaded
// image, that image is deleted from storage on every way out of here.
func Generate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var body submission
	if err := c.ShouldBindJSON(&body); err != nil {
		var verrs validator.ValidationErrors

		switch {
		case middleware.IsBodyTooLarge(err):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body size exceeds limit",
				"requestID": requestID,
			})
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     msgEmailRequired,
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     msgInvalidBody,
				"requestID": requestID,
			})

			zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	if body.hasImage() {
		defer cleanup(c, d, body.ImageURL)
	}

	clientID := c.ClientIP()

	if count := d.Usage.Check(c, clientID); d.Usage.Exceeded(count) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     msgQuotaExceeded,
			"requestID": requestID,
		})

		zap.L().Debug("Usage limit exceeded",
			zap.String("requestID", requestID),
			zap.String("clientID", clientID),
			zap.Int("count", count))
		return
	}

	ctx := c.Request.Context()
	in := prompt.Input{
		Title:       body.Title,
		Description: body.Description,
		Prompt:      body.Prompt,
	}

	if body.ImageURL != nil && body.ImageURL.PublicURL != "" {
		caption, err := d.Captioner.Caption(ctx, body.ImageURL.PublicURL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     msgCaptionFailed,
				"requestID": requestID,
			})

			zap.L().Error("Failed to caption image",
				zap.String("requestID", requestID),
				zap.String("url", body.ImageURL.PublicURL),
				zap.Error(err))
			return
		}

		in.ImageURL = body.ImageURL.PublicURL
		in.Caption = caption
	}

	instruction := prompt.Compose(in)
	zap.L().Debug("Constructed prompt", zap.String("requestID", requestID), zap.String("prompt", instruction))

	content, err := d.Generator.Generate(ctx, instruction)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     msgContentFailed,
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate SEO content", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	d.Usage.Increment(c, clientID)

	c.JSON(http.StatusOK, content)
}

// cleanup removes the uploaded image. It runs after the response has been
// written, so failures are only logged.
func cleanup(c *gin.Context, d *internal.Deps, ref *ImageReference) {
	requestID := c.GetString("requestID")

	key := d.Storage.ObjectKey(ref.Path, ref.PublicURL)
	if key == "" || strings.HasSuffix(key, "/") {
		zap.L().Warn("Can't resolve storage key of image",
			zap.String("requestID", requestID),
			zap.String("url", ref.PublicURL))
		return
	}

	// The client may have gone away already, the delete still has to happen
	ctx := context.WithoutCancel(c.Request.Context())

	if err := d.Storage.Remove(ctx, key); err != nil {
		zap.L().Error("Failed to delete image from storage",
			zap.String("requestID", requestID),
			zap.String("key", key),
			zap.Error(err))
		return
	}

	zap.L().Debug("Deleted image from storage", zap.String("requestID", requestID), zap.String("key", key))
}
