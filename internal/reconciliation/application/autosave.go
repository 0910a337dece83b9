package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const autosaveTimeout = 5 * time.Second

type autosaveOp struct {
	draft *Draft
	clear bool
}

// autosaver writes drafts from a single background goroutine. Only the most
// recent pending operation is kept, so callers never block on storage.
type autosaver struct {
	store  Autosave
	key    string
	logger logrus.FieldLogger

	mu      sync.Mutex
	pending *autosaveOp

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newAutosaver(store Autosave, key string, logger logrus.FieldLogger) *autosaver {
	a := &autosaver{
		store:  store,
		key:    key,
		logger: logger,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *autosaver) save(d Draft) {
	d = d.Clone()
	a.push(&autosaveOp{draft: &d})
}

func (a *autosaver) clear() {
	a.push(&autosaveOp{clear: true})
}

func (a *autosaver) push(op *autosaveOp) {
	a.mu.Lock()
	a.pending = op
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *autosaver) run() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.flush()
		case <-a.quit:
			a.flush()
			return
		}
	}
}

func (a *autosaver) flush() {
	a.mu.Lock()
	op := a.pending
	a.pending = nil
	a.mu.Unlock()
	if op == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	var err error
	if op.clear {
		err = a.store.Clear(ctx, a.key)
	} else {
		err = a.store.Set(ctx, a.key, *op.draft)
	}
	if err != nil {
		a.logger.WithError(err).WithField("key", a.key).Warn("autosave failed")
	}
}

// stop flushes the last pending operation and waits for the worker.
func (a *autosaver) stop() {
	close(a.quit)
	<-a.done
}

type noopAutosave struct{}

func (noopAutosave) Get(context.Context, string) (*Draft, error) { return nil, nil }
func (noopAutosave) Set(context.Context, string, Draft) error { return nil }
func (noopAutosave) Clear(context.Context, string) error { return nil }
