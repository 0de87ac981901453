package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marukatte/seo-api/app/asset"
	"marukatte/seo-api/app/generate"
	"marukatte/seo-api/app/root"
	"marukatte/seo-api/app/web"
	"marukatte/seo-api/internal"
	"marukatte/seo-api/internal/caption"
	"marukatte/seo-api/internal/generator"
	"marukatte/seo-api/internal/llm"
	"marukatte/seo-api/internal/service"
	"marukatte/seo-api/internal/usage"
	"marukatte/seo-api/pkg/middleware"
	"marukatte/seo-api/pkg/util"
	"marukatte/seo-api/storage"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxJSONBody caps the generate request, which never carries the image itself
const maxJSONBody = 1 << 20

var store = persist.NewMemoryStore(time.Minute)

// NewRouter connects to the bucket and the model provider, starts the
// background jobs and returns the engine serving every route
func NewRouter(ctx context.Context) (*gin.Engine, error) {
	s3, err := storage.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	vision, err := llm.NewChatModel(ctx, llm.FromViper("openai.vision_model"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision model, %w", err)
	}

	text, err := llm.NewChatModel(ctx, llm.FromViper("openai.text_model"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text model, %w", err)
	}

	fetchTimeout := viper.GetDuration("fetch.timeout")

	d := &internal.Deps{
		Storage:   s3,
		Captioner: caption.New(vision, util.NewHTTPClient(fetchTimeout), fetchTimeout),
		Generator: generator.New(text, viper.GetDuration("openai.timeout")),
		Usage:     usage.NewCounter(),
	}

	router, err := newEngine(d)
	if err != nil {
		return nil, err
	}

	// Removes uploads whose generate request never came
	if every := viper.GetDuration("storage.sweep.interval"); every > 0 {
		service.AssetSweeper(ctx, every, viper.GetDuration("storage.sweep.max_age"), s3)
	}

	return router, nil
}

func newEngine(d *internal.Deps) (*gin.Engine, error) {
	router := gin.New()

	origins := splitList(viper.GetStringSlice("host.cors"))
	if len(origins) == 0 {
		origins = []string{fmt.Sprintf("http://localhost:%d", viper.GetInt("host.port"))}
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "HEAD", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	// ClientIP keys the usage cookie, only trust forwarding headers from known proxies
	if err := router.SetTrustedProxies(splitList(viper.GetStringSlice("host.trusted_proxies"))); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies, %w", err)
	}

	main := router.Group("/api")
	{
		// HEAD|GET /api/heartbeat	-> Used to check if the server is alive
		heartbeat := root.Heartbeat(time.Now())
		main.HEAD("/heartbeat", heartbeat)
		main.GET("/heartbeat", heartbeat)

		// POST /api/generate		-> Generates an SEO title and description
		main.POST("/generate", middleware.BodySizeLimiter(maxJSONBody), func(c *gin.Context) { generate.Generate(c, d) })
	}

	assets := main.Group("/assets")
	{
		// POST /api/assets/presign	-> Returns a presigned URL to PUT an image to
		assets.POST("/presign", middleware.BodySizeLimiter(maxJSONBody), func(c *gin.Context) { asset.AssetPresign(c, d) })

		// POST /api/assets		-> Uploads an image through the server
		assets.POST("", func(c *gin.Context) { asset.AssetUpload(c, d) })
	}

	// GET /			-> Submission form
	if err := web.Register(router, cacheFor(5*60)); err != nil {
		return nil, fmt.Errorf("failed to mount web form, %w", err)
	}

	return router, nil
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}

// splitList flattens values that may arrive as one comma separated env var
func splitList(values []string) []string {
	var out []string

	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
