// Package file stores a tag image in a file. The standalone terminal uses
// it in place of a physical reader.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tag-wallet/internal/core/domain"
)

// Device reads and writes one tag image. A missing file reads as a blank tag.
type Device struct {
	path string
}

// New returns a device backed by path.
func New(path string) *Device {
	return &Device{path: path}
}

// Path returns the backing file.
func (d *Device) Path() string { return d.path }

// ReadBytes implements ports.TagDevice.
func (d *Device) ReadBytes(ctx context.Context) ([]byte, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
	}
	return b, nil
}

// WriteBytes implements ports.TagDevice. The image is replaced atomically:
// a reader sees either the old bytes or the new ones, never a mix.
func (d *Device) WriteBytes(ctx context.Context, data []byte) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
	}

	// Last chance to abandon the write before it becomes visible.
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHardwareIO, err)
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTagTimeout
	default:
		return domain.ErrTagRemoved
	}
}
