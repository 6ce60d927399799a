package postgres

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

// CommitHooks collects callbacks that must only run once the outermost
// transaction has committed. They are dropped when it rolls back.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// BeginCommitHooks returns the hooks already attached to ctx, or attaches a
// fresh set. created is true for the caller that owns (and must run) them.
func BeginCommitHooks(ctx context.Context) (context.Context, *CommitHooks, bool) {
	if h, ok := ctx.Value(commitHooksKey{}).(*CommitHooks); ok {
		return ctx, h, false
	}
	h := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, h), h, true
}

// RunAfterCommit defers fn until the enclosing transaction commits.
// Outside a transaction fn runs immediately.
func RunAfterCommit(ctx context.Context, fn func(context.Context)) {
	h, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Len returns the number of pending hooks
func (h *CommitHooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fns)
}

// Truncate drops hooks registered after mark, used when a savepoint rolls back
func (h *CommitHooks) Truncate(mark int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if mark < len(h.fns) {
		h.fns = h.fns[:mark]
	}
}

// Run executes and clears the pending hooks in registration order
func (h *CommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
