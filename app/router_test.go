package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marukatte/seo-api/internal"
	"marukatte/seo-api/internal/generator"
	"marukatte/seo-api/internal/usage"
	"marukatte/seo-api/pkg/middleware"
	"marukatte/seo-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopStorage struct {
	storage.Layout
	removed []string
}

func (s *nopStorage) PresignUpload(_ context.Context, key, _ string) (string, error) {
	return "https://bucket.example.com/" + key, nil
}

func (s *nopStorage) Upload(context.Context, string, io.Reader, string) error {
	return errors.New("not implemented")
}

func (s *nopStorage) Remove(_ context.Context, keys ...string) error {
	s.removed = append(s.removed, keys...)
	return nil
}

type stubCaptioner struct{}

func (stubCaptioner) Caption(context.Context, string) (string, error) { return "a mug", nil }

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string) (generator.Content, error) {
	return generator.Content{Title: "T", Description: "D"}, nil
}

func testEngine(t *testing.T) (*gin.Engine, *nopStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	viper.Set("host.cors", []string{"https://shop.example.com, https://admin.example.com"})
	viper.Set("host.port", 8080)
	t.Cleanup(viper.Reset)

	s := &nopStorage{Layout: storage.Layout{Folder: "public", PublicBase: "https://cdn.example.com/assets"}}

	r, err := newEngine(&internal.Deps{
		Storage:   s,
		Captioner: stubCaptioner{},
		Generator: stubGenerator{},
		Usage:     usage.NewCounter(),
	})
	require.NoError(t, err)

	return r, s
}

func TestRoutes(t *testing.T) {
	r, s := testEngine(t)

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodHead, "/api/heartbeat", "", http.StatusOK},
		{http.MethodGet, "/api/heartbeat", "", http.StatusOK},
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/static/app.js", "", http.StatusOK},
		{http.MethodPost, "/api/generate", `{"email":"a@b.co","imageUrl":"https://cdn.example.com/assets/public/x.png"}`, http.StatusOK},
		{http.MethodPost, "/api/assets/presign", `{"fileName":"x.png","contentType":"image/png"}`, http.StatusOK},
		{http.MethodDelete, "/api/generate", "", http.StatusMethodNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}

	assert.Equal(t, []string{"public/x.png"}, s.removed)
}

func TestGenerateBodyLimit(t *testing.T) {
	r, _ := testEngine(t)

	body := `{"email":"a@b.co","prompt":"` + strings.Repeat("x", maxJSONBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORS(t *testing.T) {
	r, _ := testEngine(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://admin.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t,
		[]string{"https://a.com", "https://b.com", "https://c.com"},
		splitList([]string{"https://a.com, https://b.com", " https://c.com ", ""}),
	)
	assert.Nil(t, splitList(nil))
}
