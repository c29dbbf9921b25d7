package question

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quotevox/quotevox/pkg/types"
)

// CachedSource memoizes cascading option lists from an underlying
// [OptionSource], so a parent answer that was already seen serves its
// dependent options without a round trip mid-dialogue.
type CachedSource struct {
	src OptionSource

	mu    sync.RWMutex
	cache map[string][]types.AnswerOption
}

// NewCachedSource wraps src with an in-memory cache.
func NewCachedSource(src OptionSource) *CachedSource {
	return &CachedSource{src: src, cache: make(map[string][]types.AnswerOption)}
}

// OptionsFor serves from the cache, falling back to the underlying source
// and caching its answer. Errors are never cached.
func (c *CachedSource) OptionsFor(ctx context.Context, questionID, parentValue string) ([]types.AnswerOption, error) {
	key := questionID + "\x00" + parentValue

	c.mu.RLock()
	opts, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return opts, nil
	}

	opts, err := c.src.OptionsFor(ctx, questionID, parentValue)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[key] = opts
	c.mu.Unlock()
	return opts, nil
}

// Len returns the number of cached option lists.
func (c *CachedSource) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Prefetcher warms cascading option lists ahead of the dialogue, so the
// first dependent question never waits on the backend.
type Prefetcher struct {
	source OptionSource
	limit  int
}

// NewPrefetcher returns a Prefetcher that issues at most limit concurrent
// fetches against source. A limit below 1 is treated as 1.
func NewPrefetcher(source OptionSource, limit int) *Prefetcher {
	if limit < 1 {
		limit = 1
	}
	return &Prefetcher{source: source, limit: limit}
}

// Warm fetches the option list of every cascading question in the flow for
// each possible answer value of its parent. Fetches run in parallel via a
// bounded errgroup; the first error aborts the warm-up and is returned.
// Warming is best effort, callers typically log the error and continue.
func (p *Prefetcher) Warm(ctx context.Context, flow *Flow) error {
	start := time.Now()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.limit)

	fetched := 0
	for i := range flow.Questions {
		q := &flow.Questions[i]
		if q.ParentID == "" {
			continue
		}
		parent := flow.QuestionByID(q.ParentID)
		if parent == nil {
			continue
		}
		for _, parentOpt := range parent.Options {
			questionID, parentValue := q.ID, parentOpt.Value
			fetched++
			eg.Go(func() error {
				if _, err := p.source.OptionsFor(egCtx, questionID, parentValue); err != nil {
					return fmt.Errorf("question: warm %q for parent value %q: %w", questionID, parentValue, err)
				}
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	slog.Debug("cascading options warmed",
		"flow", flow.ID,
		"lists", fetched,
		"took", time.Since(start))
	return nil
}
