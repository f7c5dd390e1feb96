// Package storage puts generated images somewhere a browser can fetch them.
package storage

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type Store interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// GenerationKey builds "generations/<user>/<model-slug>/<job>-<n>.<ext>".
func GenerationKey(userId uuid.UUID, modelName string, jobId uuid.UUID, index int, contentType string) string {
	name := slug.Make(modelName)
	if name == "" {
		name = "model"
	}
	return fmt.Sprintf("generations/%s/%s/%s-%d%s", userId, name, jobId, index+1, extension(contentType))
}

func extension(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
