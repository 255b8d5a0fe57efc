package indexer

import (
	"sort"

	"marketScope/internal/model"
)

// MergeEvents combines per-(contract, kind) event batches from one window
// into a single sequence ordered by (block number asc, log index asc). The
// order is independent of event kind: a same-block Minted sorts before a
// same-block Transfer because the emitting transaction logs them in that
// order.
func MergeEvents(batches ...[]model.ChainEvent) []model.ChainEvent {
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}

	merged := make([]model.ChainEvent, 0, total)
	for _, batch := range batches {
		merged = append(merged, batch...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(merged[j])
	})

	return merged
}
