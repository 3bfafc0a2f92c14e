// Package mocks provides test doubles for the database package.
package mocks

import (
	"context"
	"sync"
)

// TxManager runs fn directly without opening a transaction. Err, when set, is
// returned instead of calling fn.
type TxManager struct {
	Err error

	mu    sync.Mutex
	calls int
}

// WithTx implements database.TxManager.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}

// Calls returns how many times WithTx was invoked.
func (m *TxManager) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
