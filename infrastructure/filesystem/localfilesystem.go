package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalFilesystem keeps blobs under a root directory. Used on the device
// and on servers without an S3 bucket configured.
type LocalFilesystem struct {
	Root string
}

func NewLocalFilesystem(root string) (*LocalFilesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}
	return &LocalFilesystem{Root: root}, nil
}

func (fs *LocalFilesystem) Save(_ context.Context, name string, r io.Reader) (string, error) {
	dst := filepath.Join(fs.Root, filepath.Clean("/"+name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create blob %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", name, err)
	}

	rel, err := filepath.Rel(fs.Root, dst)
	if err != nil {
		return "", err
	}
	return rel, nil
}

func (fs *LocalFilesystem) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(fs.Root, filepath.Clean("/"+ref)))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", ref, err)
	}
	return f, nil
}
