package model

import "math/big"

// EventKind identifies one of the watched contract events. Adding a kind is a
// compile-time change: the dispatcher and decoder switch over it exhaustively.
type EventKind int

const (
	KindMinted EventKind = iota
	KindTransfer
	KindDefaultRoyaltyUpdated
	KindTokenRoyaltyUpdated
	KindListed
	KindSold
	KindCancelled
	KindPriceUpdated
)

func (k EventKind) String() string {
	switch k {
	case KindMinted:
		return "Minted"
	case KindTransfer:
		return "Transfer"
	case KindDefaultRoyaltyUpdated:
		return "DefaultRoyaltyUpdated"
	case KindTokenRoyaltyUpdated:
		return "TokenRoyaltyUpdated"
	case KindListed:
		return "Listed"
	case KindSold:
		return "Sold"
	case KindCancelled:
		return "Cancelled"
	case KindPriceUpdated:
		return "PriceUpdated"
	default:
		return "Unknown"
	}
}

// NFTEventKinds are the kinds emitted by the NFT collection contract.
func NFTEventKinds() []EventKind {
	return []EventKind{KindMinted, KindTransfer, KindDefaultRoyaltyUpdated, KindTokenRoyaltyUpdated}
}

// MarketplaceEventKinds are the kinds emitted by the marketplace contract.
func MarketplaceEventKinds() []EventKind {
	return []EventKind{KindListed, KindSold, KindCancelled, KindPriceUpdated}
}

// ChainEvent is a decoded log. It is transient: the dispatcher projects it
// into store rows and never persists it as-is. Total order key within a
// window is (BlockNumber asc, LogIndex asc).
type ChainEvent struct {
	Kind        EventKind
	Contract    string
	BlockNumber uint64
	LogIndex    uint
	TxHash      string
	Data        interface{}
}

// Before reports whether e precedes other in the canonical event order.
func (e ChainEvent) Before(other ChainEvent) bool {
	if e.BlockNumber != other.BlockNumber {
		return e.BlockNumber < other.BlockNumber
	}
	return e.LogIndex < other.LogIndex
}

// MintedData is the decoded Minted payload.
type MintedData struct {
	TokenID  *big.Int
	Owner    string
	TokenURI string
}

// TransferData is the decoded Transfer payload.
type TransferData struct {
	From    string
	To      string
	TokenID *big.Int
}

// DefaultRoyaltyData is the decoded DefaultRoyaltyUpdated payload.
type DefaultRoyaltyData struct {
	Receiver string
	FeeBps   uint32
}

// TokenRoyaltyData is the decoded TokenRoyaltyUpdated payload.
type TokenRoyaltyData struct {
	TokenID  *big.Int
	Receiver string
	FeeBps   uint32
}

// ListedData is the decoded Listed payload.
type ListedData struct {
	NFTContract string
	TokenID     *big.Int
	Seller      string
	PriceWei    *big.Int
}

// SoldData is the decoded Sold payload.
type SoldData struct {
	NFTContract string
	TokenID     *big.Int
	Seller      string
	Buyer       string
	PriceWei    *big.Int
}

// CancelledData is the decoded Cancelled payload.
type CancelledData struct {
	NFTContract string
	TokenID     *big.Int
	Seller      string
}

// PriceUpdatedData is the decoded PriceUpdated payload.
type PriceUpdatedData struct {
	NFTContract string
	TokenID     *big.Int
	OldPriceWei *big.Int
	NewPriceWei *big.Int
}
