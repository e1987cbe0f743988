package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"llmdesk/pkg/logger"

	"github.com/sirupsen/logrus"
)

// KV 在 Backend 之上提供 JSON 序列化的类型化读写
type KV struct {
	backend Backend
}

func NewKV(backend Backend) *KV {
	return &KV{backend: backend}
}

func (kv *KV) Backend() Backend {
	return kv.backend
}

// Read 从不失败：键不存在或数据损坏时返回 def 并记录诊断日志
func Read[T any](kv *KV, key string, def T) T {
	raw, err := kv.backend.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			logger.Debugf("storage key %s not found, using default", key)
		} else {
			logger.WithFields(logrus.Fields{"key": key}).Warnf("storage read failed, using default: %v", err)
		}
		return def
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		logger.WithFields(logrus.Fields{"key": key}).Warnf("%v: %v, using default", ErrInvalidData, err)
		return def
	}
	return value
}

// Write 序列化并覆盖写入，返回时后续 Read 立即可见
func Write[T any](kv *KV, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return kv.backend.Set(key, string(data))
}

func (kv *KV) Remove(key string) error {
	return kv.backend.Delete(key)
}
