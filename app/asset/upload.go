package asset

import (
	"errors"
	"io"
	"net/http"

	"marukatte/seo-api/internal"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssetUpload stores a multipart "file" part through the server. The form
// falls back to it when the direct PUT to the bucket fails.
func AssetUpload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "No file provided",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid multipart form",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to read multipart file", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open multipart file", zap.String("requestID", requestID), zap.Error(err))
		return
	}
	defer f.Close()

	// The declared type is whatever the browser guessed, store the real one
	mime, err := mimetype.DetectReader(f)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to detect file type", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	key := d.Storage.NewKey(fh.Filename)

	if err := d.Storage.Upload(c.Request.Context(), key, f, mime.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upload image", zap.String("requestID", requestID), zap.String("key", key), zap.Error(err))
		return
	}

	zap.L().Debug("Uploaded image",
		zap.String("requestID", requestID),
		zap.String("key", key),
		zap.String("type", mime.String()),
		zap.Int64("size", fh.Size))

	c.JSON(http.StatusOK, gin.H{
		"path":      key,
		"publicUrl": d.Storage.PublicURL(key),
	})
}
