package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"

	"github.com/bowerhall/reconmem/pkg/reconmem"
)

// Digest returns the hex sha256 of an image body, which is its natural key.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DescribeImage builds the insert request for an image body. Dimensions are
// only filled in for formats the decoder knows.
func DescribeImage(name string, data []byte) reconmem.NewImage {
	img := reconmem.NewImage{Value: Digest(data)}

	if name != "" {
		base := filepath.Base(name)
		img.Filename = &base
	}

	mime := http.DetectContentType(data)
	img.Mime = &mime

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height := int64(cfg.Width), int64(cfg.Height)
		img.Width = &width
		img.Height = &height
	}

	return img
}
