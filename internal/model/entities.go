package model

import (
	"math/big"
	"time"
)

// NFT is the projected token row. Created on Minted, mutated by Transfer and
// TokenRoyaltyUpdated, never deleted.
type NFT struct {
	TokenID         string    `json:"token_id"`
	Owner           string    `json:"owner"`
	TokenURI        string    `json:"token_uri"`
	RoyaltyReceiver string    `json:"royalty_receiver,omitempty"`
	RoyaltyBps      uint32    `json:"royalty_bps"`
	MintedAt        time.Time `json:"minted_at"`
}

// Listing is the projected listing row, keyed by (nft_contract, token_id).
// At most one row per key; re-listing replaces it.
type Listing struct {
	NFTContract string    `json:"nft_contract"`
	TokenID     string    `json:"token_id"`
	Seller      string    `json:"seller"`
	PriceWei    string    `json:"price_wei"`
	Active      bool      `json:"active"`
	ListedAt    time.Time `json:"listed_at"`
}

// Trade is one append-only trading history row, written per Sold event.
type Trade struct {
	NFTContract    string    `json:"nft_contract"`
	TokenID        string    `json:"token_id"`
	Seller         string    `json:"seller"`
	Buyer          string    `json:"buyer"`
	PriceWei       string    `json:"price_wei"`
	PlatformFeeWei string    `json:"platform_fee_wei"`
	RoyaltyFeeWei  string    `json:"royalty_fee_wei"`
	TxHash         string    `json:"tx_hash"`
	SoldAt         time.Time `json:"sold_at"`
}

// Checkpoint is the durable sync cursor for one watched contract.
type Checkpoint struct {
	ContractAddress string    `json:"contract_address"`
	LastSyncedBlock uint64    `json:"last_synced_block"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RoyaltyInfo is the result of an ERC-2981 royaltyInfo point read.
type RoyaltyInfo struct {
	Receiver string
	Amount   *big.Int
}
