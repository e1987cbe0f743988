package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"llmdesk/internal/model"
	"llmdesk/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	ErrOperationInFlight = errors.New("operation already in progress")
	ErrPollerClosed      = errors.New("poller closed")
)

// OperationClient 外部长时间运行操作的启动、查询与清理接口
type OperationClient interface {
	Start(ctx context.Context, key string) error
	Status(ctx context.Context, key string) (model.DownloadOperation, error)
	Clear(ctx context.Context, key string) error
}

type PollerOptions struct {
	Interval    time.Duration
	GracePeriod time.Duration
	// OnCompleted 在操作到达 completed 时调用一次（例如重新拉取模型列表）
	OnCompleted func(ctx context.Context, key string)
}

type trackedOperation struct {
	state  model.DownloadOperation
	gen    uint64
	cancel context.CancelFunc
}

// OperationPoller 每个键一个状态机：idle → initiated → downloading → completed | failed。
// 同一个键同时最多只有一个进行中的操作。
type OperationPoller struct {
	name   string
	client OperationClient
	opts   PollerOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	ops      map[string]*trackedOperation
	gen      uint64
	closed   bool
	watchers map[string]map[uint64]chan model.DownloadOperation
	watchSeq uint64
}

func NewOperationPoller(name string, client OperationClient, opts PollerOptions) *OperationPoller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &OperationPoller{
		name:     name,
		client:   client,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		ops:      make(map[string]*trackedOperation),
		watchers: make(map[string]map[uint64]chan model.DownloadOperation),
	}
}

func (p *OperationPoller) log(key string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"poller": p.name, "key": key})
}

// Start 启动操作并开始轮询。键已有进行中的操作时返回 ErrOperationInFlight，且不改变其状态。
func (p *OperationPoller) Start(ctx context.Context, key string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPollerClosed
	}
	if existing, ok := p.ops[key]; ok {
		if !existing.state.Status.IsTerminal() {
			p.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrOperationInFlight, key)
		}
		// 终态等待清理的旧操作直接让位
		existing.cancel()
	}

	p.gen++
	gen := p.gen
	op := &trackedOperation{
		state: model.DownloadOperation{
			Key:     key,
			Status:  model.StatusInitiated,
			Message: "starting",
		},
		gen:    gen,
		cancel: func() {},
	}
	p.ops[key] = op
	p.notifyLocked(key, op.state)
	p.mu.Unlock()

	if err := p.client.Start(ctx, key); err != nil {
		p.log(key).Warnf("Failed to start operation: %v", err)
		failed := model.DownloadOperation{
			Key:     key,
			Status:  model.StatusFailed,
			Message: "failed to start",
			Error:   err.Error(),
		}
		p.launch(key, gen, failed, p.awaitPurge)
		return fmt.Errorf("start %s: %w", key, err)
	}

	if !p.launch(key, gen, model.DownloadOperation{}, p.poll) {
		return ErrPollerClosed
	}
	p.log(key).Info("Operation started, polling")
	return nil
}

// launch 在锁内登记后台协程；state 非空时先写入该状态
func (p *OperationPoller) launch(key string, gen uint64, state model.DownloadOperation, fn func(ctx context.Context, key string, gen uint64)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[key]
	if p.closed || !ok || op.gen != gen {
		return false
	}
	if state.Status != "" {
		op.state = state
		p.notifyLocked(key, state)
	}

	opCtx, cancel := context.WithCancel(p.ctx)
	op.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(opCtx, key, gen)
	}()
	return true
}

func (p *OperationPoller) poll(ctx context.Context, key string, gen uint64) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	var final model.DownloadOperation
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snapshot, err := p.client.Status(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// 单次轮询失败不改变状态，下一个周期重试
			p.log(key).Warnf("Poll failed: %v", err)
			continue
		}

		snapshot.Key = key
		snapshot.Status = snapshot.Status.Normalize()
		snapshot = snapshot.ClampProgress()
		if !p.replace(key, gen, snapshot) {
			return
		}
		if snapshot.Status.IsTerminal() {
			final = snapshot
			break
		}
	}
	ticker.Stop()

	p.log(key).Infof("Operation reached %s", final.Status)
	if final.Status == model.StatusCompleted && p.opts.OnCompleted != nil {
		p.opts.OnCompleted(ctx, key)
	}

	p.awaitPurge(ctx, key, gen)
}

// awaitPurge 宽限期后移除可观察状态，并尽力通知外部清理；清理失败不重试
func (p *OperationPoller) awaitPurge(ctx context.Context, key string, gen uint64) {
	timer := time.NewTimer(p.opts.GracePeriod)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if !p.purge(key, gen) {
		return
	}
	if err := p.client.Clear(ctx, key); err != nil {
		p.log(key).Debugf("Ignoring cleanup failure: %v", err)
	}
}

// replace 用最新快照整体替换状态；操作已被替代时返回 false
func (p *OperationPoller) replace(key string, gen uint64, snapshot model.DownloadOperation) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[key]
	if !ok || op.gen != gen {
		return false
	}
	op.state = snapshot
	p.notifyLocked(key, snapshot)
	return true
}

func (p *OperationPoller) purge(key string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[key]
	if !ok || op.gen != gen {
		return false
	}
	op.cancel()
	delete(p.ops, key)
	for id, ch := range p.watchers[key] {
		close(ch)
		delete(p.watchers[key], id)
	}
	delete(p.watchers, key)
	return true
}

// Snapshot 返回键的当前状态；没有被跟踪的键视为 idle
func (p *OperationPoller) Snapshot(key string) (model.DownloadOperation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[key]
	if !ok {
		return model.DownloadOperation{Key: key, Status: model.StatusIdle}, false
	}
	return op.state, true
}

// Operations 按键排序返回全部被跟踪的操作
func (p *OperationPoller) Operations() []model.DownloadOperation {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.DownloadOperation, 0, len(p.ops))
	for _, op := range p.ops {
		out = append(out, op.state)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// Watch 订阅键的状态变化；状态被清理或轮询器关闭时通道关闭
func (p *OperationPoller) Watch(key string) (<-chan model.DownloadOperation, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan model.DownloadOperation, 16)
	if p.closed {
		close(ch)
		return ch, func() {}
	}

	p.watchSeq++
	id := p.watchSeq
	if p.watchers[key] == nil {
		p.watchers[key] = make(map[uint64]chan model.DownloadOperation)
	}
	p.watchers[key][id] = ch

	if op, ok := p.ops[key]; ok {
		ch <- op.state
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if w, ok := p.watchers[key][id]; ok {
				close(w)
				delete(p.watchers[key], id)
			}
			if len(p.watchers[key]) == 0 {
				delete(p.watchers, key)
			}
		})
	}
}

func (p *OperationPoller) notifyLocked(key string, state model.DownloadOperation) {
	for _, ch := range p.watchers[key] {
		select {
		case ch <- state:
		default:
			p.log(key).Debug("Watcher is slow, dropping update")
		}
	}
}

// Close 取消所有键的轮询与清理计时，等待后台协程退出
func (p *OperationPoller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for key, set := range p.watchers {
		for id, ch := range set {
			close(ch)
			delete(set, id)
		}
		delete(p.watchers, key)
	}
}
