package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"llmdesk/pkg/logger"
)

// DiskBackend 每个键一个文件，写入使用临时文件加重命名保证原子性
type DiskBackend struct {
	dataDir string
	mu      sync.RWMutex
	cache   map[string]string
}

func NewDiskBackend(dataDir string) *DiskBackend {
	return &DiskBackend{
		dataDir: dataDir,
		cache:   make(map[string]string),
	}
}

func (d *DiskBackend) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskBackend) createDirectories() error {
	dirs := []string{
		d.dataDir,
		d.kvDir(),
		filepath.Join(d.dataDir, "backup"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (d *DiskBackend) kvDir() string {
	return filepath.Join(d.dataDir, "kv")
}

func (d *DiskBackend) keyPath(key string) string {
	return filepath.Join(d.kvDir(), url.PathEscape(key)+".json")
}

func (d *DiskBackend) Get(key string) (string, error) {
	d.mu.RLock()
	if value, exists := d.cache[key]; exists {
		d.mu.RUnlock()
		return value, nil
	}
	d.mu.RUnlock()

	data, err := os.ReadFile(d.keyPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return d.fillCache(key, string(data)), nil
}

// fillCache 仅在键仍未缓存时写入读到的文件内容；
// 读文件期间完成的 Set 已更新缓存，以缓存为准
func (d *DiskBackend) fillCache(key, value string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, exists := d.cache[key]; exists {
		return cached
	}
	d.cache[key] = value
	return value
}

func (d *DiskBackend) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := writeFileAtomic(d.keyPath(key), []byte(value)); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[key] = value
	return nil
}

func (d *DiskBackend) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.cache, key)
	if err := os.Remove(d.keyPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskBackend) Keys() ([]string, error) {
	files, err := os.ReadDir(d.kvDir())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			logger.Warnf("Skipping unreadable storage file %s: %v", name, err)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *DiskBackend) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]string)
	return nil
}

// Backup 将当前所有键复制到 backup/backup_<unix> 目录，返回该目录
func (d *DiskBackend) Backup() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().UnixNano()))
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := copyDir(d.kvDir(), backupDir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return backupDir, nil
}

func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, file.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, file.Name()), data, 0644); err != nil {
			return err
		}
	}

	return nil
}
