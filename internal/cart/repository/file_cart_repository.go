package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"decobot/internal/domain"
)

// FileCartRepository keeps one JSON file per chat under dir.
type FileCartRepository struct {
	dir string
}

func NewFileCartRepository(dir string) (*FileCartRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cart directory: %w", err)
	}
	return &FileCartRepository{dir: dir}, nil
}

func (r *FileCartRepository) path(chatID int64) string {
	return filepath.Join(r.dir, fmt.Sprintf("cart_%d.json", chatID))
}

func (r *FileCartRepository) Load(ctx context.Context, chatID int64) ([]domain.LineItem, error) {
	data, err := os.ReadFile(r.path(chatID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart file: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding cart file: %w", err)
	}
	return items, nil
}

func (r *FileCartRepository) Save(ctx context.Context, chatID int64, items []domain.LineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "cart-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cart file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path(chatID)); err != nil {
		return fmt.Errorf("replacing cart file: %w", err)
	}
	return nil
}

func (r *FileCartRepository) Delete(ctx context.Context, chatID int64) error {
	err := os.Remove(r.path(chatID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing cart file: %w", err)
	}
	return nil
}
