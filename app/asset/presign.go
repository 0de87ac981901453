// Package asset lets the form put product images into the storage bucket
package asset

import (
	"net/http"

	"marukatte/seo-api/internal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type presignRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType"`
}

// AssetPresign hands out a short lived URL the browser can PUT an image to.
// The object is later removed by the generate endpoint or the sweeper.
func AssetPresign(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var body presignRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	key := d.Storage.NewKey(body.FileName)

	uploadURL, err := d.Storage.PresignUpload(c.Request.Context(), key, body.ContentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to presign upload", zap.String("requestID", requestID), zap.String("key", key), zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":      key,
		"uploadUrl": uploadURL,
		"publicUrl": d.Storage.PublicURL(key),
	})
}
