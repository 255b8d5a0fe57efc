package storage

import (
	"context"

	"marketScope/internal/model"
)

// Store is the persistence surface the projection writes to. All mutations
// except InsertTrade are idempotent upserts, so re-processing an
// already-applied window leaves NFT and listing rows unchanged.
type Store interface {
	UpsertNFT(ctx context.Context, nft model.NFT) error
	UpdateNFTOwner(ctx context.Context, tokenID, owner string) error
	UpdateNFTRoyalty(ctx context.Context, tokenID, receiver string, bps uint32) error

	UpsertListing(ctx context.Context, listing model.Listing) error
	CancelListing(ctx context.Context, nftContract, tokenID string) error
	UpdateListingPrice(ctx context.Context, nftContract, tokenID, priceWei string) error

	InsertTrade(ctx context.Context, trade model.Trade) error

	GetCheckpoint(ctx context.Context, contract string) (uint64, bool, error)
	SaveCheckpoint(ctx context.Context, contract string, block uint64) error
}
