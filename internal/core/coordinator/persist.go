package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tasktray/internal/core/model"
)

const writeTimeout = 5 * time.Second

// persister writes task updates in the background. Pending updates are
// coalesced per task so only the latest state of each task is written.
type persister struct {
	store      TaskStore
	retryDelay time.Duration
	log        zerolog.Logger
	onFailure  func(*PersistenceError)

	mu      sync.Mutex
	pending map[string]model.TaskUpdate
	order   []string

	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	closed bool
}

func newPersister(store TaskStore, retryDelay time.Duration, log zerolog.Logger, onFailure func(*PersistenceError)) *persister {
	return &persister{
		store:      store,
		retryDelay: retryDelay,
		log:        log,
		onFailure:  onFailure,
		pending:    make(map[string]model.TaskUpdate),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (p *persister) enqueue(update model.TaskUpdate) {
	if p.store == nil || update.ID == "" {
		return
	}
	p.mu.Lock()
	if _, queued := p.pending[update.ID]; !queued {
		p.order = append(p.order, update.ID)
	}
	p.pending[update.ID] = update
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
			p.drain()
		}
	}
}

// stop ends the worker and writes whatever is still queued.
func (p *persister) stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	<-p.done
	p.drain()
}

func (p *persister) drain() {
	for {
		update, ok := p.next()
		if !ok {
			return
		}
		if err := p.write(update); err != nil {
			p.log.Error().Err(err).Str("task_id", update.ID).Msg("task update not saved")
			if p.onFailure != nil {
				p.onFailure(err)
			}
		}
	}
}

func (p *persister) next() (model.TaskUpdate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return model.TaskUpdate{}, false
	}
	id := p.order[0]
	p.order = p.order[1:]
	update := p.pending[id]
	delete(p.pending, id)
	return update, true
}

// write tries the update twice before giving up.
func (p *persister) write(update model.TaskUpdate) *PersistenceError {
	const attempts = 2
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		lastErr = p.store.UpdateTask(ctx, update)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt < attempts {
			p.log.Warn().Err(lastErr).Str("task_id", update.ID).Msg("task update failed, retrying")
			if p.retryDelay > 0 {
				time.Sleep(p.retryDelay)
			}
		}
	}
	return &PersistenceError{TaskID: update.ID, Attempts: attempts, Err: lastErr}
}
