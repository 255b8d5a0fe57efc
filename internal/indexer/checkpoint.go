package indexer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"marketScope/internal/storage"
)

// CheckpointManager maintains the per-contract sync cursor on top of the
// store. Store failures degrade to "treat as genesis": Get returns 0 and Save
// is dropped, so a crash here at worst triggers a full re-scan, which is safe
// for the upsert tables but duplicates trading history rows.
type CheckpointManager struct {
	store  storage.Store
	logger *zap.Logger

	mu   sync.Mutex
	last map[string]uint64
}

func NewCheckpointManager(store storage.Store, logger *zap.Logger) *CheckpointManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointManager{
		store:  store,
		logger: logger,
		last:   make(map[string]uint64),
	}
}

// Get returns the last synced block for a contract. An absent row is lazily
// created at 0; read failures are logged and reported as 0.
func (m *CheckpointManager) Get(ctx context.Context, contract string) uint64 {
	block, ok, err := m.store.GetCheckpoint(ctx, contract)
	if err != nil {
		m.logger.Error("checkpoint read failed, treating as genesis",
			zap.String("contract", contract), zap.Error(err))
		return 0
	}
	if !ok {
		if err := m.store.SaveCheckpoint(ctx, contract, 0); err != nil {
			m.logger.Error("checkpoint init failed",
				zap.String("contract", contract), zap.Error(err))
		}
		return 0
	}

	m.mu.Lock()
	if block > m.last[contract] {
		m.last[contract] = block
	}
	m.mu.Unlock()

	return block
}

// Save persists monotonic progress for a contract. Regressions are dropped,
// write failures are logged and swallowed.
func (m *CheckpointManager) Save(ctx context.Context, contract string, block uint64) {
	m.mu.Lock()
	if block < m.last[contract] {
		last := m.last[contract]
		m.mu.Unlock()
		m.logger.Warn("checkpoint regression dropped",
			zap.String("contract", contract), zap.Uint64("block", block), zap.Uint64("last", last))
		return
	}
	m.last[contract] = block
	m.mu.Unlock()

	if err := m.store.SaveCheckpoint(ctx, contract, block); err != nil {
		m.logger.Error("checkpoint write failed",
			zap.String("contract", contract), zap.Uint64("block", block), zap.Error(err))
	}
}
