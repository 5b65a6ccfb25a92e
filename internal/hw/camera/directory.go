package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/frame"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

// DirectorySource replays the images of a directory in name order,
// wrapping around at the end. Useful for kiosks without a camera and for
// demos.
type DirectorySource struct {
	dir  string
	mu   sync.Mutex
	next int
}

// NewDirectorySource creates a source reading images from dir.
func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

// Ready reports whether the directory holds at least one image.
func (d *DirectorySource) Ready() bool {
	files, err := d.files()
	return err == nil && len(files) > 0
}

// StillFrame decodes the next image of the directory.
func (d *DirectorySource) StillFrame(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := d.files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFrame
	}

	d.mu.Lock()
	path := files[d.next%len(files)]
	d.next++
	d.mu.Unlock()

	debug.Trace("Camera: reading %s", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	return frame.Decode(f)
}

func (d *DirectorySource) files() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(d.dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}
