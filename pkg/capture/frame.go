// Package capture supplies camera frames and decodes QR payloads from them.
// The camera itself is external: a capture daemon drops still images into a
// spool directory which this package drains in name order.
package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Frame is one captured still.
type Frame struct {
	Source string
	Image  image.Image
}

// Source yields frames. ok is false when no frame is currently available.
type Source interface {
	NextFrame(ctx context.Context) (frame Frame, ok bool, err error)
}

// SpoolSource reads image files from a directory, removing each once read.
type SpoolSource struct {
	dir string
}

// NewSpoolSource ensures the spool directory exists.
func NewSpoolSource(dir string) (*SpoolSource, error) {
	if dir == "" {
		dir = "./frames"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool directory: %w", err)
	}
	return &SpoolSource{dir: dir}, nil
}

// NextFrame returns the oldest-named image in the spool.
func (s *SpoolSource) NextFrame(ctx context.Context) (Frame, bool, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, false, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Frame{}, false, fmt.Errorf("list spool: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return Frame{}, false, nil
	}
	sort.Strings(names)

	path := filepath.Join(s.dir, names[0])
	img, err := decodeImage(path)
	// the frame is consumed even when unreadable so a bad file cannot wedge the spool
	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = fmt.Errorf("remove frame %s: %w", names[0], rmErr)
	}
	if err != nil {
		return Frame{}, false, err
	}
	return Frame{Source: names[0], Image: img}, true, nil
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close() //nolint:errcheck

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
