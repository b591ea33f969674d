// Package media tracks managed media referenced from page content and
// deletes what an edit stopped using once the edit settles.
package media

import (
	"context"
	"sync"
	"time"

	"go-wiki-engine/internal/content"
	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/logger"
)

// DefaultDebounce is how long edits must settle before deletion runs.
const DefaultDebounce = 2 * time.Second

// Diff returns the entries of previous that are missing from current, in the
// order of previous.
func Diff(previous, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, url := range current {
		keep[url] = struct{}{}
	}
	removed := []string{}
	for _, url := range previous {
		if _, ok := keep[url]; !ok {
			removed = append(removed, url)
		}
	}
	return removed
}

// stopper is the part of *time.Timer the lifecycle needs.
type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

type pendingTask struct {
	timer   stopper
	removed []string
}

// Lifecycle schedules one pending deletion per page. A newer observation for
// the same page replaces the pending one; replaced diffs never run.
type Lifecycle struct {
	store  Deleter
	pages  PageLister
	prefix string
	delay  time.Duration
	log    logger.Logger
	after  afterFunc

	mu      sync.Mutex
	pending map[string]*pendingTask
	closed  bool
	wg      sync.WaitGroup
}

// Deleter removes one media object by its URL.
type Deleter interface {
	Delete(ctx context.Context, url string) error
}

// PageLister returns every persisted page.
type PageLister interface {
	ListPages(ctx context.Context) ([]*data.Page, error)
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.delay = d
		}
	}
}

// WithPrefix sets the managed media prefix.
func WithPrefix(prefix string) Option {
	return func(l *Lifecycle) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for deletion failures.
func WithLogger(log logger.Logger) Option {
	return func(l *Lifecycle) {
		if log != nil {
			l.log = log
		}
	}
}

// WithReferences makes deletion skip media that any persisted page still
// references, such as an image shared by two pages.
func WithReferences(pages PageLister) Option {
	return func(l *Lifecycle) { l.pages = pages }
}

func withAfterFunc(fn afterFunc) Option {
	return func(l *Lifecycle) { l.after = fn }
}

// NewLifecycle creates a lifecycle manager deleting through store.
func NewLifecycle(store Deleter, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store:   store,
		prefix:  content.DefaultMediaPrefix,
		delay:   DefaultDebounce,
		log:     logger.Nop(),
		pending: make(map[string]*pendingTask),
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Observe records an edit of pageID from previousContent to currentContent.
// The managed media dropped by the edit is deleted after the debounce delay
// unless another observation for the page arrives first.
func (l *Lifecycle) Observe(pageID, previousContent, currentContent string) {
	removed := Diff(l.keys(previousContent), l.keys(currentContent))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.cancelLocked(pageID)
	if len(removed) == 0 {
		return
	}

	task := &pendingTask{removed: removed}
	task.timer = l.after(l.delay, func() {
		l.mu.Lock()
		if l.pending[pageID] != task {
			l.mu.Unlock()
			return
		}
		delete(l.pending, pageID)
		l.wg.Add(1)
		l.mu.Unlock()

		defer l.wg.Done()
		l.delete(context.Background(), pageID, task.removed)
	})
	l.pending[pageID] = task
}

// Discard handles cancel-with-discard: any pending task for pageID is
// dropped and the diff from the discarded draft back to the saved content
// runs immediately. It returns the number of objects deleted.
func (l *Lifecycle) Discard(ctx context.Context, pageID, draftContent, savedContent string) int {
	l.mu.Lock()
	l.cancelLocked(pageID)
	l.mu.Unlock()

	removed := Diff(l.keys(draftContent), l.keys(savedContent))
	return l.delete(ctx, pageID, removed)
}

// Pending reports whether pageID has a scheduled deletion.
func (l *Lifecycle) Pending(pageID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[pageID]
	return ok
}

// Flush runs every pending task now.
func (l *Lifecycle) Flush(ctx context.Context) {
	l.mu.Lock()
	tasks := l.pending
	l.pending = make(map[string]*pendingTask)
	for _, t := range tasks {
		t.timer.Stop()
	}
	l.mu.Unlock()

	for pageID, t := range tasks {
		l.delete(ctx, pageID, t.removed)
	}
}

// Close drops pending tasks and waits for running ones.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	l.closed = true
	for pageID := range l.pending {
		l.cancelLocked(pageID)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Lifecycle) cancelLocked(pageID string) {
	if t, ok := l.pending[pageID]; ok {
		t.timer.Stop()
		delete(l.pending, pageID)
	}
}

// keys returns the object keys of the managed media in src. Spellings of
// the same object ("/store/a.png", "./store/a.png") collapse to one key.
func (l *Lifecycle) keys(src string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, url := range content.ExtractMedia(src, l.prefix) {
		key, err := KeyFromURL(url, l.prefix)
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// inUse returns the keys referenced by persisted pages. A nil set with ok
// false means the pages could not be listed and nothing may be deleted.
func (l *Lifecycle) inUse(ctx context.Context) (map[string]bool, bool) {
	if l.pages == nil {
		return nil, true
	}
	pages, err := l.pages.ListPages(ctx)
	if err != nil {
		l.log.Error(err, "failed to list pages, skipping media deletion")
		return nil, false
	}
	set := make(map[string]bool)
	for _, p := range pages {
		for _, key := range l.keys(p.Content) {
			set[key] = true
		}
	}
	return set, true
}

// delete is best effort: failures are logged and the rest still run.
func (l *Lifecycle) delete(ctx context.Context, pageID string, keys []string) int {
	if len(keys) == 0 {
		return 0
	}
	used, ok := l.inUse(ctx)
	if !ok {
		return 0
	}
	deleted := 0
	for _, url := range keys {
		if used[url] {
			l.log.With(map[string]interface{}{"page_id": pageID, "url": url}).Debug("media still referenced, kept")
			continue
		}
		log := l.log.With(map[string]interface{}{"page_id": pageID, "url": url})
		if err := l.store.Delete(ctx, url); err != nil {
			log.Error(err, "failed to delete unused media")
			continue
		}
		deleted++
		log.Debug("deleted unused media")
	}
	return deleted
}
