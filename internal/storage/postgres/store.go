package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketScope/internal/model"
)

// Store provides Postgres persistence for the marketplace projection.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertNFT inserts or updates an NFT row by token id.
func (s *Store) UpsertNFT(ctx context.Context, nft model.NFT) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO nfts (
			token_id, owner, token_uri, royalty_receiver, royalty_bps, minted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (token_id)
		DO UPDATE SET
			owner = EXCLUDED.owner,
			token_uri = EXCLUDED.token_uri,
			royalty_receiver = EXCLUDED.royalty_receiver,
			royalty_bps = EXCLUDED.royalty_bps,
			updated_at = now()
	`,
		nft.TokenID,
		nft.Owner,
		nft.TokenURI,
		nft.RoyaltyReceiver,
		int64(nft.RoyaltyBps),
		nft.MintedAt,
	)
	return err
}

// UpdateNFTOwner sets the owner of an NFT.
func (s *Store) UpdateNFTOwner(ctx context.Context, tokenID, owner string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE nfts SET owner = $2, updated_at = now() WHERE token_id = $1
	`, tokenID, owner)
	return err
}

// UpdateNFTRoyalty sets per-token royalty terms.
func (s *Store) UpdateNFTRoyalty(ctx context.Context, tokenID, receiver string, bps uint32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE nfts SET royalty_receiver = $2, royalty_bps = $3, updated_at = now() WHERE token_id = $1
	`, tokenID, receiver, int64(bps))
	return err
}

// UpsertListing inserts or replaces the listing for (nft_contract, token_id),
// reactivating it. Re-listing replaces rather than appends.
func (s *Store) UpsertListing(ctx context.Context, listing model.Listing) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO listings (
			nft_contract, token_id, seller, price_wei, active, listed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (nft_contract, token_id)
		DO UPDATE SET
			seller = EXCLUDED.seller,
			price_wei = EXCLUDED.price_wei,
			active = EXCLUDED.active,
			listed_at = EXCLUDED.listed_at,
			updated_at = now()
	`,
		listing.NFTContract,
		listing.TokenID,
		listing.Seller,
		listing.PriceWei,
		listing.Active,
		listing.ListedAt,
	)
	return err
}

// CancelListing deactivates the listing for (nft_contract, token_id).
func (s *Store) CancelListing(ctx context.Context, nftContract, tokenID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE listings SET active = false, updated_at = now()
		WHERE nft_contract = $1 AND token_id = $2
	`, nftContract, tokenID)
	return err
}

// UpdateListingPrice sets the listing price.
func (s *Store) UpdateListingPrice(ctx context.Context, nftContract, tokenID, priceWei string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE listings SET price_wei = $3, updated_at = now()
		WHERE nft_contract = $1 AND token_id = $2
	`, nftContract, tokenID, priceWei)
	return err
}

// InsertTrade appends one trading history row. The table carries no
// uniqueness constraint, so a checkpoint re-scan can duplicate rows.
func (s *Store) InsertTrade(ctx context.Context, trade model.Trade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (
			nft_contract, token_id, seller, buyer, price_wei, platform_fee_wei, royalty_fee_wei, tx_hash, sold_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`,
		trade.NFTContract,
		trade.TokenID,
		trade.Seller,
		trade.Buyer,
		trade.PriceWei,
		trade.PlatformFeeWei,
		trade.RoyaltyFeeWei,
		trade.TxHash,
		trade.SoldAt,
	)
	return err
}

// GetCheckpoint returns the last synced block for a contract.
func (s *Store) GetCheckpoint(ctx context.Context, contract string) (uint64, bool, error) {
	if contract == "" {
		return 0, false, fmt.Errorf("contract address required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_synced_block FROM sync_checkpoints WHERE contract_address = $1`, contract)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveCheckpoint upserts the last synced block for a contract. GREATEST keeps
// the cursor non-decreasing even under concurrent writers.
func (s *Store) SaveCheckpoint(ctx context.Context, contract string, block uint64) error {
	if contract == "" {
		return fmt.Errorf("contract address required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_checkpoints (contract_address, last_synced_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (contract_address) DO UPDATE
		SET last_synced_block = GREATEST(sync_checkpoints.last_synced_block, EXCLUDED.last_synced_block), updated_at = now()
	`, contract, int64(block))
	return err
}
