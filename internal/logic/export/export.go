// Package export encodes rendered strips and hands them to a sink.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
)

// Download name and media type of an exported strip.
const (
	Filename    = "photobooth-strip.png"
	ContentType = "image/png"
)

// Sink receives an encoded strip (browser download, file on disk, ...).
type Sink interface {
	Deliver(ctx context.Context, name, contentType string, data []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name, contentType string, data []byte) error

func (f SinkFunc) Deliver(ctx context.Context, name, contentType string, data []byte) error {
	return f(ctx, name, contentType, data)
}

// Encoder turns rendered strips into PNG files.
type Encoder struct {
	Compression png.CompressionLevel
}

// NewEncoder returns an encoder using default PNG compression.
func NewEncoder() *Encoder {
	return &Encoder{Compression: png.DefaultCompression}
}

// Encode returns res as PNG bytes.
func (e *Encoder) Encode(res *strip.Result) ([]byte, error) {
	if res == nil || res.Image == nil {
		return nil, errors.New("export: nothing to encode")
	}
	// The compositor has already released its gg.Context and hands over a
	// plain *image.RGBA, so gg's EncodePNG is out of reach; png.Encoder
	// also exposes the compression level.
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: e.Compression}
	if err := enc.Encode(&buf, res.Image); err != nil {
		return nil, fmt.Errorf("export: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Save encodes res and delivers it to sink as Filename. A nil result or
// a strip without photos is a no-op: saved is false and err is nil.
func (e *Encoder) Save(ctx context.Context, res *strip.Result, sink Sink) (saved bool, err error) {
	if res == nil || res.PhotoCount == 0 {
		debug.Verbose("Export: no photos, nothing saved")
		return false, nil
	}
	if sink == nil {
		return false, errors.New("export: no sink")
	}
	data, err := e.Encode(res)
	if err != nil {
		return false, err
	}
	if err := sink.Deliver(ctx, Filename, ContentType, data); err != nil {
		return false, fmt.Errorf("export: deliver %s: %w", Filename, err)
	}
	debug.Info("Strip exported (%d bytes)", len(data))
	return true, nil
}

// DirSink writes exported files into a directory, creating it if needed.
type DirSink struct {
	Dir string
}

// Path returns where a file named name is written.
func (d DirSink) Path(name string) string {
	return filepath.Join(d.Dir, filepath.Base(name))
}

func (d DirSink) Deliver(ctx context.Context, name, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	path := d.Path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	debug.Verbose("Export: wrote %s", path)
	return nil
}
