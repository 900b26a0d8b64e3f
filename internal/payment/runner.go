package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned to callers whose request was cancelled because the
// checkout inputs changed while it was in flight.
var ErrSuperseded = errors.New("payment request superseded by newer checkout inputs")

type runningTask struct {
	key    string
	cancel context.CancelFunc
}

// TaskRunner runs at most one gateway request per scope and key. Concurrent
// callers with the same key share one request; a caller with a different key
// cancels whatever is running for the scope.
type TaskRunner struct {
	group   singleflight.Group
	timeout time.Duration

	mu      sync.Mutex
	latest  map[string]string
	running map[string][]*runningTask
}

func NewTaskRunner(timeout time.Duration) *TaskRunner {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TaskRunner{
		timeout: timeout,
		latest:  map[string]string{},
		running: map[string][]*runningTask{},
	}
}

// Timeout is the bound applied to every task.
func (r *TaskRunner) Timeout() time.Duration {
	return r.timeout
}

// Do runs fn under the scope/key pair. The task context is detached from ctx so
// one caller going away does not cancel a request others are waiting on.
func (r *TaskRunner) Do(ctx context.Context, scope, key string, fn func(context.Context) (Preference, error)) (Preference, error) {
	r.supersede(scope, key)

	ch := r.group.DoChan(scope+"/"+key, func() (any, error) {
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		task := r.track(scope, key, cancel)
		defer r.untrack(scope, task)
		return fn(taskCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) {
				return Preference{}, ErrSuperseded
			}
			return Preference{}, res.Err
		}
		return res.Val.(Preference), nil
	case <-ctx.Done():
		return Preference{}, ctx.Err()
	}
}

// InFlight reports whether a task is running for scope.
func (r *TaskRunner) InFlight(scope string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running[scope]) > 0
}

func (r *TaskRunner) supersede(scope, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[scope] = key
	for _, task := range r.running[scope] {
		if task.key != key {
			task.cancel()
		}
	}
}

func (r *TaskRunner) track(scope, key string, cancel context.CancelFunc) *runningTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := &runningTask{key: key, cancel: cancel}
	r.running[scope] = append(r.running[scope], task)
	// A newer key arrived before this task registered.
	if r.latest[scope] != key {
		cancel()
	}
	return task
}

func (r *TaskRunner) untrack(scope string, task *runningTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := r.running[scope]
	for i, candidate := range tasks {
		if candidate == task {
			tasks = append(tasks[:i], tasks[i+1:]...)
			break
		}
	}
	if len(tasks) == 0 {
		delete(r.running, scope)
		if r.latest[scope] == task.key {
			delete(r.latest, scope)
		}
		return
	}
	r.running[scope] = tasks
}
