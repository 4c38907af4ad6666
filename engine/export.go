package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultExportInterval is the "≈ every 60s" cadence spec.md §5 calls for.
const DefaultExportInterval = 60 * time.Second

// exporter is the background hashtab-exporter thread: it periodically
// snapshots the Context's hashtab and writes it atomically, never touching
// patches or AST, matching the sweep-loop shape of
// chazu-maggie/vm/registry_gc.go's RegistryGC.
type exporter struct {
	ctx      *Context
	path     string
	interval time.Duration
	enabled  atomic.Bool

	mu      sync.Mutex // guards start/stop lifecycle
	stop    chan struct{}
	stopped chan struct{}

	ticks atomic.Uint64
}

// StartSavingThread is idempotent: calling it again while the exporter is
// already running is a no-op, the contract behind the C ABI's
// start_saving_thread. path is where each tick's snapshot is written.
func (c *Context) StartSavingThread(path string) {
	c.mu.Lock()
	if c.exporter == nil {
		c.exporter = &exporter{ctx: c, path: path, interval: DefaultExportInterval}
		c.exporter.enabled.Store(true)
	}
	exp := c.exporter
	c.mu.Unlock()

	exp.start()
}

// StopSavingThread halts the exporter goroutine, if running, and waits for
// it to finish its current tick.
func (c *Context) StopSavingThread() {
	c.mu.RLock()
	exp := c.exporter
	c.mu.RUnlock()
	if exp != nil {
		exp.stop_()
	}
}

func (e *exporter) start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		return
	}
	e.stop = make(chan struct{})
	e.stopped = make(chan struct{})

	stopCh := e.stop
	stoppedCh := e.stopped
	go e.loop(stopCh, stoppedCh)
}

func (e *exporter) stop_() {
	e.mu.Lock()
	stopCh := e.stop
	stoppedCh := e.stopped
	e.stop = nil
	e.stopped = nil
	e.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

func (e *exporter) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if e.enabled.Load() {
				e.tick()
			}
		}
	}
}

func (e *exporter) tick() {
	if err := e.ctx.SaveHashtab(e.path); err != nil {
		e.ctx.logger.Warn("hashtab export failed", zap.String("path", e.path), zap.Error(err))
		return
	}
	e.ticks.Add(1)
	e.ctx.logger.Debug("hashtab exported", zap.String("path", e.path), zap.Uint64("tick", e.ticks.Load()))
}
