package dispatch

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordervox/ordervox/pkg/types"
)

// TransactionManager holds pending checkouts between the checkout and the
// confirm step. A pending transaction that is not confirmed within the TTL
// expires and is purged by the sweep; there is no rollback path.
type TransactionManager struct {
	mu  sync.Mutex
	ttl time.Duration

	pending map[string]*types.Transaction
	// bySession maps a session to its most recent pending transaction so
	// confirm_order works without the user naming the transaction.
	bySession map[string]string
}

// NewTransactionManager creates a manager with the given pending TTL.
func NewTransactionManager(ttl time.Duration) *TransactionManager {
	return &TransactionManager{
		ttl:       ttl,
		pending:   make(map[string]*types.Transaction),
		bySession: make(map[string]string),
	}
}

// Begin creates a pending transaction from the cart snapshot and the computed
// totals and associates it with the session.
func (m *TransactionManager) Begin(sessionID string, items []types.CartItem, subtotal, vat, delivery, total float64, now time.Time) *types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &types.Transaction{
		ID:        uuid.NewString(),
		Items:     append([]types.CartItem(nil), items...),
		Subtotal:  subtotal,
		VAT:       vat,
		Delivery:  delivery,
		Total:     total,
		Status:    types.TxPending,
		CreatedAt: now,
	}
	m.pending[tx.ID] = tx
	m.bySession[sessionID] = tx.ID
	return tx
}

// Confirm commits the session's pending transaction and removes it from the
// pending set. It returns nil when the session has no live pending
// transaction (never created, already confirmed, or expired).
func (m *TransactionManager) Confirm(sessionID string, now time.Time) *types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySession[sessionID]
	if !ok {
		return nil
	}
	tx, ok := m.pending[id]
	if !ok {
		return nil
	}
	if now.Sub(tx.CreatedAt) > m.ttl {
		tx.Status = types.TxExpired
		delete(m.pending, id)
		delete(m.bySession, sessionID)
		return nil
	}

	tx.Status = types.TxCommitted
	delete(m.pending, id)
	delete(m.bySession, sessionID)
	return tx
}

// Abandon drops the session's pending transaction, if any, and reports
// whether one was dropped. Used by the cancel intent.
func (m *TransactionManager) Abandon(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySession[sessionID]
	if !ok {
		return false
	}
	delete(m.pending, id)
	delete(m.bySession, sessionID)
	return true
}

// Pending returns the session's live pending transaction, or nil.
func (m *TransactionManager) Pending(sessionID string, now time.Time) *types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySession[sessionID]
	if !ok {
		return nil
	}
	tx, ok := m.pending[id]
	if !ok || now.Sub(tx.CreatedAt) > m.ttl {
		return nil
	}
	return tx
}

// Sweep expires pending transactions older than the TTL and returns how many
// were purged.
func (m *TransactionManager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, tx := range m.pending {
		if now.Sub(tx.CreatedAt) > m.ttl {
			tx.Status = types.TxExpired
			delete(m.pending, id)
			purged++
		}
	}
	for session, id := range m.bySession {
		if _, ok := m.pending[id]; !ok {
			delete(m.bySession, session)
		}
	}
	return purged
}

// Size returns the number of live pending transactions.
func (m *TransactionManager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
