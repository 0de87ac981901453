package storage

import (
	"net/url"
	"path"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	keyAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxNameLength = 100
	fallbackName  = "image"
	keyIDLength   = 12
)

// Layout describes where uploaded assets live inside the bucket and how
// they are reachable publicly
type Layout struct {
	// Folder every upload is stored under, without slashes
	Folder string
	// PublicBase is the URL an object key is appended to, without a trailing slash
	PublicBase string
}

// Normalize turns p into a key inside the upload folder. Keys already
// carrying the folder prefix are kept, anything else gets it prepended.
// Relative segments can't escape the folder.
func (l Layout) Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "" {
		return ""
	}

	if p == l.Folder || strings.HasPrefix(p, l.Folder+"/") {
		return p
	}

	return l.Folder + "/" + p
}

// ObjectKey resolves the storage key of an uploaded asset. An explicit
// path wins, otherwise the key is recovered from the public URL.
func (l Layout) ObjectKey(p, publicURL string) string {
	if strings.TrimSpace(p) != "" {
		return l.Normalize(p)
	}

	publicURL = strings.TrimSpace(publicURL)
	if publicURL == "" {
		return ""
	}

	if l.PublicBase != "" && strings.HasPrefix(publicURL, l.PublicBase+"/") {
		rest := strings.TrimPrefix(publicURL, l.PublicBase+"/")
		if i := strings.IndexAny(rest, "?#"); i >= 0 {
			rest = rest[:i]
		}
		if unescaped, err := url.PathUnescape(rest); err == nil {
			rest = unescaped
		}
		return l.Normalize(rest)
	}

	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}

	if i := strings.Index(u.Path, "/"+l.Folder+"/"); i >= 0 {
		return l.Normalize(u.Path[i+1:])
	}

	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}

	return l.Normalize(base)
}

// PublicURL returns the public address of key
func (l Layout) PublicURL(key string) string {
	var escaped []string
	for _, seg := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}

	return l.PublicBase + "/" + strings.Join(escaped, "/")
}

// NewKey returns a fresh key for an upload named fileName. The random
// prefix keeps two uploads of the same file from overwriting each other.
func (l Layout) NewKey(fileName string) string {
	return l.Folder + "/" + gonanoid.MustGenerate(keyAlphabet, keyIDLength) + "-" + sanitizeName(fileName)
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return fallbackName
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return fallbackName
	}
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}

	return out
}
