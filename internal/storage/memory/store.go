package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketScope/internal/model"
)

func listingKey(nftContract, tokenID string) string {
	return nftContract + "/" + tokenID
}

// Store is an in-memory implementation of storage.Store. It backs tests and
// ad-hoc runs that do not need Postgres.
type Store struct {
	mu          sync.Mutex
	nfts        map[string]model.NFT
	listings    map[string]model.Listing
	trades      []model.Trade
	checkpoints map[string]model.Checkpoint
}

func NewStore() *Store {
	return &Store{
		nfts:        make(map[string]model.NFT),
		listings:    make(map[string]model.Listing),
		checkpoints: make(map[string]model.Checkpoint),
	}
}

func (s *Store) UpsertNFT(_ context.Context, nft model.NFT) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.nfts[nft.TokenID]; ok {
		nft.MintedAt = existing.MintedAt
	}
	s.nfts[nft.TokenID] = nft
	return nil
}

func (s *Store) UpdateNFTOwner(_ context.Context, tokenID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nft, ok := s.nfts[tokenID]
	if !ok {
		return fmt.Errorf("nft %s not found", tokenID)
	}
	nft.Owner = owner
	s.nfts[tokenID] = nft
	return nil
}

func (s *Store) UpdateNFTRoyalty(_ context.Context, tokenID, receiver string, bps uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nft, ok := s.nfts[tokenID]
	if !ok {
		return fmt.Errorf("nft %s not found", tokenID)
	}
	nft.RoyaltyReceiver = receiver
	nft.RoyaltyBps = bps
	s.nfts[tokenID] = nft
	return nil
}

func (s *Store) UpsertListing(_ context.Context, listing model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listingKey(listing.NFTContract, listing.TokenID)] = listing
	return nil
}

func (s *Store) CancelListing(_ context.Context, nftContract, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := listingKey(nftContract, tokenID)
	listing, ok := s.listings[key]
	if !ok {
		return nil
	}
	listing.Active = false
	s.listings[key] = listing
	return nil
}

func (s *Store) UpdateListingPrice(_ context.Context, nftContract, tokenID, priceWei string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := listingKey(nftContract, tokenID)
	listing, ok := s.listings[key]
	if !ok {
		return fmt.Errorf("listing %s not found", key)
	}
	listing.PriceWei = priceWei
	s.listings[key] = listing
	return nil
}

func (s *Store) InsertTrade(_ context.Context, trade model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

func (s *Store) GetCheckpoint(_ context.Context, contract string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[contract]
	if !ok {
		return 0, false, nil
	}
	return cp.LastSyncedBlock, true, nil
}

func (s *Store) SaveCheckpoint(_ context.Context, contract string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[contract] = model.Checkpoint{
		ContractAddress: contract,
		LastSyncedBlock: block,
		UpdatedAt:       time.Now().UTC(),
	}
	return nil
}

// NFT returns the stored NFT row, if any.
func (s *Store) NFT(tokenID string) (model.NFT, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nft, ok := s.nfts[tokenID]
	return nft, ok
}

// Listing returns the stored listing row, if any.
func (s *Store) Listing(nftContract, tokenID string) (model.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[listingKey(nftContract, tokenID)]
	return listing, ok
}

// Trades returns a copy of the trading history.
func (s *Store) Trades() []model.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Checkpoint returns the stored checkpoint for a contract, if any.
func (s *Store) Checkpoint(contract string) (model.Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[contract]
	return cp, ok
}
