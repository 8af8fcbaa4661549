package http

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// extensionAliases maps common spellings onto the extensions filetype registers
var extensionAliases = map[string]string{
	"jpeg": "jpg",
}

// parseMediaType returns the explicit media type, or infers it from the file
// extension of rawURL when s is empty.
func parseMediaType(s, rawURL string) (entity.MediaType, error) {
	switch s {
	case "image":
		return entity.MediaTypeImage, nil
	case "video":
		return entity.MediaTypeVideo, nil
	case "":
		return inferMediaType(rawURL)
	default:
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidMediaType, s)
	}
}

// inferMediaType maps a URL's file extension to image or video
func inferMediaType(rawURL string) (entity.MediaType, error) {
	if rawURL == "" {
		return "", entity.ErrEmptyMediaURL
	}

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if alias, ok := extensionAliases[ext]; ok {
		ext = alias
	}

	kind := filetype.GetType(ext)
	if kind == types.Unknown {
		return "", fmt.Errorf("%w: cannot infer type of %q", entity.ErrInvalidMediaType, rawURL)
	}

	switch kind.MIME.Type {
	case "image":
		return entity.MediaTypeImage, nil
	case "video":
		return entity.MediaTypeVideo, nil
	default:
		return "", fmt.Errorf("%w: %s is not an image or video", entity.ErrInvalidMediaType, kind.MIME.Value)
	}
}
