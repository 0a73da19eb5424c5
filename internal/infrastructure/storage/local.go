package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

// LocalStorage объектное хранилище на локальном диске. Ключ объекта
// соответствует относительному пути внутри root.
type LocalStorage struct {
	root string
}

// NewLocalStorage создаёт каталог root, если его нет.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Backend() string {
	return "local"
}

func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_ = contentType
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", entity.ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStorage) List(ctx context.Context, prefix string) ([]entity.StoredObject, error) {
	var objects []entity.StoredObject
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, entity.StoredObject{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *LocalStorage) Size(ctx context.Context, prefix string) (int64, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return totalSize(objects), nil
}

// path переводит ключ в путь на диске; выход за пределы root запрещён.
func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func totalSize(objects []entity.StoredObject) int64 {
	var total int64
	for _, o := range objects {
		total += o.Size
	}
	return total
}

var _ port.ObjectStorage = (*LocalStorage)(nil)
