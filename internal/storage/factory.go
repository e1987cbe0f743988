package storage

import (
	"fmt"

	"llmdesk/internal/config"
	"llmdesk/pkg/logger"
)

// New 按配置创建并初始化后端；初始化失败时退回内存存储
func New(cfg config.StorageConfig) Backend {
	backend, err := Open(cfg)
	if err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		backend = NewMemoryBackend()
		backend.Init()
	}
	return backend
}

// Open 按配置创建并初始化后端，不做降级
func Open(cfg config.StorageConfig) (Backend, error) {
	var backend Backend

	switch cfg.Type {
	case "disk":
		backend = NewDiskBackend(cfg.DataDir)
	case "sqlite":
		backend = NewSQLiteBackend(cfg.SQLitePath)
	case "memory", "":
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, cfg.Type)
	}

	if err := backend.Init(); err != nil {
		return nil, err
	}
	return backend, nil
}
