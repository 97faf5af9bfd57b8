// Package decode turns image identifiers into in-memory buffers.
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
)

// ErrDecodeFailed is returned when an image resource cannot be read or is
// not a decodable image. Per-image failures abort only the current cycle;
// the next trigger retries fresh.
var ErrDecodeFailed = errors.New("decode failed")

// Decoder resolves an identifier into a decoded buffer. Implementations may
// block on I/O; callers run them off the trigger path.
type Decoder interface {
	Decode(ctx context.Context, id rotation.ID) (*rotation.Buffer, error)
}

// FileDecoder reads identifiers as paths on the local filesystem.
type FileDecoder struct{}

// Decode reads and fully decodes the image at id. The raw encoded bytes are
// kept alongside the pixel data so committers that stage a file don't have
// to re-encode.
func (FileDecoder) Decode(ctx context.Context, id rotation.ID) (*rotation.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(string(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, id, err)
	}

	return &rotation.Buffer{
		ID:     id,
		Img:    img,
		Data:   data,
		Format: format,
	}, nil
}
