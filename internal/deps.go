package internal

import (
	"context"
	"io"

	"marukatte/seo-api/internal/generator"
	"marukatte/seo-api/internal/usage"
)

// Storage is the part of the object storage client the handlers use
type Storage interface {
	NewKey(fileName string) string
	ObjectKey(path, publicURL string) string
	PublicURL(key string) string
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Remove(ctx context.Context, keys ...string) error
}

type ImageCaptioner interface {
	Caption(ctx context.Context, imageURL string) (string, error)
}

type ContentGenerator interface {
	Generate(ctx context.Context, instruction string) (generator.Content, error)
}

type Deps struct {
	Storage   Storage
	Captioner ImageCaptioner
	Generator ContentGenerator
	Usage     *usage.Counter
}
