package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned by [Group.Do] and [DoResult] when no entry
// succeeds.
var ErrAllFailed = errors.New("resilience: all providers failed")

// entry pairs a provider with its dedicated breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Group tries a primary and any number of standbys of one provider type in
// registration order, each behind its own [Breaker]. An entry whose breaker
// is open is skipped without being called, so a known-dead primary costs
// nothing.
//
// Configure the group fully before use; Do and DoResult may then be called
// concurrently.
type Group[T any] struct {
	breakerCfg BreakerConfig
	entries    []entry[T]
}

// NewGroup creates a Group with primary as its first entry. cfg.Name is
// replaced per entry with the entry's own name.
func NewGroup[T any](name string, primary T, cfg BreakerConfig) *Group[T] {
	g := &Group[T]{breakerCfg: cfg}
	g.Add(name, primary)
	return g
}

// Add appends a standby, tried after all earlier entries.
func (g *Group[T]) Add(name string, value T) {
	cfg := g.breakerCfg
	cfg.Name = name
	g.entries = append(g.entries, entry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// Names returns the entry names in trial order.
func (g *Group[T]) Names() []string {
	names := make([]string, len(g.entries))
	for i := range g.entries {
		names[i] = g.entries[i].name
	}
	return names
}

// Do tries fn against each entry until one succeeds. When every entry fails
// or is skipped, the returned error wraps [ErrAllFailed] and the last cause.
func (g *Group[T]) Do(fn func(T) error) error {
	var lastErr error
	for i := range g.entries {
		e := &g.entries[i]
		err := e.breaker.Do(func() error { return fn(e.value) })
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping provider, circuit open", "provider", e.name)
			continue
		}
		slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
	}
	return fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

// DoResult is the result-returning form of [Group.Do]. It is a free function
// because Go methods cannot introduce type parameters.
func DoResult[T, R any](g *Group[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.entries {
		e := &g.entries[i]
		var result R
		err := e.breaker.Do(func() error {
			var callErr error
			result, callErr = fn(e.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping provider, circuit open", "provider", e.name)
			continue
		}
		slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
