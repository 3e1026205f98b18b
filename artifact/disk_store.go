package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type (
	DiskStore struct {
		rootPath string
	}
)

func NewDiskStore(rootPath string) (*DiskStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	return &DiskStore{rootPath: rootPath}, nil
}

// Put writes to a temp file and renames it so readers never see a partial file.
func (ds *DiskStore) Put(_ context.Context, name string, b []byte) error {
	f, err := os.CreateTemp(ds.rootPath, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("error in os.CreateTemp: %w", err)
	}
	tmp := f.Name()
	if _, err = f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error closing %s: %w", name, err)
	}
	if err = os.Rename(tmp, filepath.Join(ds.rootPath, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error in os.Rename: %w", err)
	}
	return nil
}

func (ds *DiskStore) Get(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(ds.rootPath, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error in os.ReadFile: %w", err)
	}
	return b, nil
}

func (ds *DiskStore) Shutdown(context.Context) error {
	return nil
}
