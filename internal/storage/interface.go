package storage

// Backend 同步、以字符串为键的持久化介质。
// Set 返回后，同一进程内的后续 Get 必须立即可见。
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)

	// 存储管理
	Init() error
	Close() error
}

// Backuper 支持快照备份的后端
type Backuper interface {
	Backup() (string, error)
}
