package model

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var messageSeq atomic.Uint64

func NewSessionID() string {
	return uuid.New().String()
}

// NewMessageID 基于纳秒时钟生成，同一时钟刻度内用递增序号区分
func NewMessageID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), messageSeq.Add(1))
}
