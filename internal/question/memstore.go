package question

import (
	"context"
	"fmt"
	"sync"

	"github.com/quotevox/quotevox/pkg/types"
)

// MemStore is an in-memory Store, used for YAML-loaded flows and in tests.
type MemStore struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

// NewMemStore returns a MemStore holding the given flows.
func NewMemStore(flows ...*Flow) *MemStore {
	s := &MemStore{flows: make(map[string]*Flow, len(flows))}
	for _, f := range flows {
		s.flows[f.ID] = f
	}
	return s
}

// Put adds or replaces a flow.
func (s *MemStore) Put(f *Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = f
}

// Flow returns the flow with the given ID, or ErrNotFound.
func (s *MemStore) Flow(_ context.Context, id string) (*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return nil, fmt.Errorf("flow %q: %w", id, ErrNotFound)
	}
	return f, nil
}

// OptionsFor returns the cascading option list bound to parentValue, the
// question's base options when none is bound, or ErrNotFound for unknown
// questions.
func (s *MemStore) OptionsFor(_ context.Context, questionID, parentValue string) ([]types.AnswerOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.flows {
		q := f.QuestionByID(questionID)
		if q == nil {
			continue
		}
		if opts, ok := q.OptionsByParent[parentValue]; ok {
			return opts, nil
		}
		return q.Options, nil
	}
	return nil, fmt.Errorf("question %q: %w", questionID, ErrNotFound)
}
