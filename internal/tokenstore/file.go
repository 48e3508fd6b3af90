package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pribylovaa/kelibe/internal/models"
)

// File — пара токенов в JSON-файле с правами 0600.
// Запись идёт через временный файл и rename, поэтому читатель
// никогда не увидит половину пары.
type File struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*File)(nil)

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Get(ctx context.Context) (models.TokenPair, error) {
	const op = "tokenstore.File.Get"

	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.TokenPair{}, nil
	}
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	return pair, nil
}

func (f *File) Set(ctx context.Context, pair models.TokenPair) error {
	const op = "tokenstore.File.Set"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if pair.Empty() {
		return f.remove(op)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%s: mkdir: %w", op, err)
	}

	b, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("%s: temp: %w", op, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: write: %w", op, err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: chmod: %w", op, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: close: %w", op, err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: rename: %w", op, err)
	}

	return nil
}

func (f *File) Clear(ctx context.Context) error {
	const op = "tokenstore.File.Clear"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.remove(op)
}

func (f *File) remove(op string) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: remove: %w", op, err)
	}

	return nil
}
