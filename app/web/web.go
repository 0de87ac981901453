// Package web serves the submission form
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

//go:embed static/*
var staticFS embed.FS

// Register mounts the form at / and its assets under /static. Every route
// goes through the given middleware, which is where response caching is
// plugged in.
func Register(r gin.IRoutes, mw ...gin.HandlerFunc) error {
	index, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		return err
	}

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	files := http.FS(sub)

	chain := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(slices.Clone(mw), h)
	}

	r.GET("/", chain(func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})...)

	r.GET("/static/*filepath", chain(func(c *gin.Context) {
		c.FileFromFS(c.Param("filepath"), files)
	})...)

	return nil
}
