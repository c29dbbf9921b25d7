// Package mock provides test doubles for the llm package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/quotevox/quotevox/pkg/provider/llm"
	"github.com/quotevox/quotevox/pkg/types"
)

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// CompleteFunc, if non-nil, replaces the default Complete behaviour
	// entirely. The call is still recorded.
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Response is returned by Complete when CompleteFunc is nil.
	Response *llm.Response

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// Caps is returned by Capabilities.
	Caps types.ModelCapabilities

	// CompleteCalls records every request passed to Complete in order.
	CompleteCalls []llm.Request
}

// Complete records the call and returns Response, CompleteErr.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, req)
	completeFunc := p.CompleteFunc
	resp := p.Response
	err := p.CompleteErr
	p.mu.Unlock()

	if completeFunc != nil {
		return completeFunc(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp != nil {
		return resp, nil
	}
	return &llm.Response{Content: ""}, nil
}

// Capabilities returns Caps.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Caps
}

// CallCount returns the number of Complete calls so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
