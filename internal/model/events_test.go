package model

import "testing"

func TestEventKindString(t *testing.T) {
	cases := map[EventKind]string{
		KindMinted:                "Minted",
		KindTransfer:              "Transfer",
		KindDefaultRoyaltyUpdated: "DefaultRoyaltyUpdated",
		KindTokenRoyaltyUpdated:   "TokenRoyaltyUpdated",
		KindListed:                "Listed",
		KindSold:                  "Sold",
		KindCancelled:             "Cancelled",
		KindPriceUpdated:          "PriceUpdated",
		EventKind(42):             "Unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", kind, got, want)
		}
	}
}

func TestEventKindsCoverAllWatches(t *testing.T) {
	seen := make(map[EventKind]bool)
	for _, kind := range NFTEventKinds() {
		seen[kind] = true
	}
	for _, kind := range MarketplaceEventKinds() {
		if seen[kind] {
			t.Fatalf("kind %s listed for both contracts", kind)
		}
		seen[kind] = true
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 watched kinds, got %d", len(seen))
	}
}

func TestChainEventBefore(t *testing.T) {
	earlierBlock := ChainEvent{BlockNumber: 5, LogIndex: 9}
	laterBlock := ChainEvent{BlockNumber: 6, LogIndex: 0}
	if !earlierBlock.Before(laterBlock) {
		t.Fatalf("lower block must sort first regardless of log index")
	}
	if laterBlock.Before(earlierBlock) {
		t.Fatalf("ordering must be asymmetric")
	}

	first := ChainEvent{BlockNumber: 5, LogIndex: 0}
	second := ChainEvent{BlockNumber: 5, LogIndex: 1}
	if !first.Before(second) {
		t.Fatalf("same block must order by log index")
	}
	if first.Before(first) {
		t.Fatalf("an event must not precede itself")
	}
}
