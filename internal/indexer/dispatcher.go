package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"marketScope/internal/metadata"
	"marketScope/internal/metrics"
	"marketScope/internal/model"
	"marketScope/internal/notify"
	"marketScope/internal/storage"
)

// ChainReader is the read surface of the external provider.
type ChainReader interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	FetchLogs(ctx context.Context, contract common.Address, topic0 common.Hash, fromBlock, toBlock uint64) ([]types.Log, error)
	RoyaltyInfo(ctx context.Context, nft common.Address, tokenID, salePrice *big.Int) (model.RoyaltyInfo, error)
}

// MetadataResolver fetches token metadata by CID. Lookups are best effort.
type MetadataResolver interface {
	Metadata(ctx context.Context, cid string) (map[string]interface{}, error)
}

var zeroAddress = common.Address{}.Hex()

// EventError records one failed projection within a window.
type EventError struct {
	Event model.ChainEvent
	Err   error
}

// Report summarizes the application of one window's events. Per-event
// failures are collected here rather than aborting the window: liveness over
// per-event completeness.
type Report struct {
	Applied int
	Errors  []EventError
}

// Dispatcher projects chain events into store rows and notifications. One
// handler per event kind; handlers are fault-isolated.
type Dispatcher struct {
	store    storage.Store
	reader   ChainReader
	resolver MetadataResolver
	bus      notify.Broadcaster
	logger   *zap.Logger
	metrics  *metrics.Metrics
	nowFunc  func() time.Time
}

// NewDispatcher builds a dispatcher. resolver and metrics may be nil; a nil
// bus disables notifications.
func NewDispatcher(store storage.Store, reader ChainReader, resolver MetadataResolver, bus notify.Broadcaster, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = notify.NopBroadcaster{}
	}
	return &Dispatcher{
		store:    store,
		reader:   reader,
		resolver: resolver,
		bus:      bus,
		logger:   logger,
		metrics:  m,
		nowFunc:  time.Now,
	}
}

// Apply projects an ordered window of events. A failed event is logged,
// counted, and skipped; the remaining events still apply.
func (d *Dispatcher) Apply(ctx context.Context, events []model.ChainEvent) Report {
	var report Report
	for _, ev := range events {
		if err := d.apply(ctx, ev); err != nil {
			d.logger.Error("event projection failed",
				zap.String("kind", ev.Kind.String()),
				zap.Uint64("block", ev.BlockNumber),
				zap.Uint("log_index", ev.LogIndex),
				zap.String("tx", ev.TxHash),
				zap.Error(err))
			d.metrics.ProjectionError()
			report.Errors = append(report.Errors, EventError{Event: ev, Err: err})
			continue
		}
		report.Applied++
		d.metrics.EventProcessed(ev.Kind.String())
	}
	return report
}

func (d *Dispatcher) apply(ctx context.Context, ev model.ChainEvent) error {
	switch ev.Kind {
	case model.KindMinted:
		data, ok := ev.Data.(model.MintedData)
		if !ok {
			return fmt.Errorf("minted payload type mismatch: %T", ev.Data)
		}
		return d.handleMinted(ctx, ev, data)
	case model.KindTransfer:
		data, ok := ev.Data.(model.TransferData)
		if !ok {
			return fmt.Errorf("transfer payload type mismatch: %T", ev.Data)
		}
		return d.handleTransfer(ctx, data)
	case model.KindDefaultRoyaltyUpdated:
		data, ok := ev.Data.(model.DefaultRoyaltyData)
		if !ok {
			return fmt.Errorf("default royalty payload type mismatch: %T", ev.Data)
		}
		return d.handleDefaultRoyalty(data)
	case model.KindTokenRoyaltyUpdated:
		data, ok := ev.Data.(model.TokenRoyaltyData)
		if !ok {
			return fmt.Errorf("token royalty payload type mismatch: %T", ev.Data)
		}
		return d.handleTokenRoyalty(ctx, data)
	case model.KindListed:
		data, ok := ev.Data.(model.ListedData)
		if !ok {
			return fmt.Errorf("listed payload type mismatch: %T", ev.Data)
		}
		return d.handleListed(ctx, data)
	case model.KindSold:
		data, ok := ev.Data.(model.SoldData)
		if !ok {
			return fmt.Errorf("sold payload type mismatch: %T", ev.Data)
		}
		return d.handleSold(ctx, ev, data)
	case model.KindCancelled:
		data, ok := ev.Data.(model.CancelledData)
		if !ok {
			return fmt.Errorf("cancelled payload type mismatch: %T", ev.Data)
		}
		return d.handleCancelled(ctx, data)
	case model.KindPriceUpdated:
		data, ok := ev.Data.(model.PriceUpdatedData)
		if !ok {
			return fmt.Errorf("price updated payload type mismatch: %T", ev.Data)
		}
		return d.handlePriceUpdated(ctx, data)
	default:
		return fmt.Errorf("unhandled event kind: %s", ev.Kind)
	}
}

func (d *Dispatcher) handleMinted(ctx context.Context, ev model.ChainEvent, data model.MintedData) error {
	tokenID := data.TokenID.String()

	var meta map[string]interface{}
	if cid, ok := metadata.ExtractCID(data.TokenURI); ok && d.resolver != nil {
		doc, err := d.resolver.Metadata(ctx, cid)
		if err != nil {
			d.logger.Debug("metadata fetch failed",
				zap.String("token_id", tokenID), zap.String("cid", cid), zap.Error(err))
		} else {
			meta = doc
		}
	}

	receiver := ""
	bps := uint32(0)
	nft := common.HexToAddress(ev.Contract)
	// royaltyInfo over a 10000 salePrice yields the fee in basis points.
	if info, err := d.reader.RoyaltyInfo(ctx, nft, data.TokenID, big.NewInt(BpsDenominator)); err != nil {
		d.logger.Warn("royalty lookup failed, defaulting to zero",
			zap.String("token_id", tokenID), zap.Error(err))
	} else {
		receiver = info.Receiver
		if info.Amount != nil && info.Amount.IsUint64() {
			bps = uint32(info.Amount.Uint64())
		}
	}

	err := d.store.UpsertNFT(ctx, model.NFT{
		TokenID:         tokenID,
		Owner:           data.Owner,
		TokenURI:        data.TokenURI,
		RoyaltyReceiver: receiver,
		RoyaltyBps:      bps,
		MintedAt:        d.nowFunc().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upsert nft %s: %w", tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypeNFTMinted, Data: notify.MintedPayload{
		TokenID:  tokenID,
		Owner:    data.Owner,
		TokenURI: data.TokenURI,
		Metadata: meta,
	}})
	return nil
}

func (d *Dispatcher) handleTransfer(ctx context.Context, data model.TransferData) error {
	// A mint emits Transfer(0x0 -> owner) in the same transaction; the Minted
	// handler already set ownership.
	if data.From == zeroAddress {
		return nil
	}

	tokenID := data.TokenID.String()
	if err := d.store.UpdateNFTOwner(ctx, tokenID, data.To); err != nil {
		return fmt.Errorf("update owner %s: %w", tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypeNFTTransferred, Data: notify.TransferredPayload{
		TokenID: tokenID,
		From:    data.From,
		To:      data.To,
	}})
	return nil
}

func (d *Dispatcher) handleDefaultRoyalty(data model.DefaultRoyaltyData) error {
	// No persisted entity; observational only.
	d.bus.Broadcast(notify.Message{Type: notify.TypeDefaultRoyaltyUpdated, Data: notify.DefaultRoyaltyPayload{
		Receiver: data.Receiver,
		FeeBps:   data.FeeBps,
	}})
	return nil
}

func (d *Dispatcher) handleTokenRoyalty(ctx context.Context, data model.TokenRoyaltyData) error {
	tokenID := data.TokenID.String()
	if err := d.store.UpdateNFTRoyalty(ctx, tokenID, data.Receiver, data.FeeBps); err != nil {
		return fmt.Errorf("update royalty %s: %w", tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypeTokenRoyaltyUpdated, Data: notify.TokenRoyaltyPayload{
		TokenID:  tokenID,
		Receiver: data.Receiver,
		FeeBps:   data.FeeBps,
	}})
	return nil
}

func (d *Dispatcher) handleListed(ctx context.Context, data model.ListedData) error {
	tokenID := data.TokenID.String()
	err := d.store.UpsertListing(ctx, model.Listing{
		NFTContract: data.NFTContract,
		TokenID:     tokenID,
		Seller:      data.Seller,
		PriceWei:    data.PriceWei.String(),
		Active:      true,
		ListedAt:    d.nowFunc().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upsert listing %s/%s: %w", data.NFTContract, tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypeNFTListed, Data: notify.ListedPayload{
		NFTContract: data.NFTContract,
		TokenID:     tokenID,
		Seller:      data.Seller,
		PriceWei:    data.PriceWei.String(),
	}})
	return nil
}

func (d *Dispatcher) handleSold(ctx context.Context, ev model.ChainEvent, data model.SoldData) error {
	tokenID := data.TokenID.String()
	platformFee := FeeAmount(data.PriceWei, PlatformFeeBps)

	// royaltyInfo over the sale price returns the royalty amount directly.
	royaltyFee := new(big.Int)
	nft := common.HexToAddress(data.NFTContract)
	if info, err := d.reader.RoyaltyInfo(ctx, nft, data.TokenID, data.PriceWei); err != nil {
		d.logger.Warn("royalty lookup failed, defaulting to zero",
			zap.String("token_id", tokenID), zap.Error(err))
	} else if info.Amount != nil {
		royaltyFee = info.Amount
	}

	if err := d.store.CancelListing(ctx, data.NFTContract, tokenID); err != nil {
		return fmt.Errorf("deactivate listing %s/%s: %w", data.NFTContract, tokenID, err)
	}

	err := d.store.InsertTrade(ctx, model.Trade{
		NFTContract:    data.NFTContract,
		TokenID:        tokenID,
		Seller:         data.Seller,
		Buyer:          data.Buyer,
		PriceWei:       data.PriceWei.String(),
		PlatformFeeWei: platformFee.String(),
		RoyaltyFeeWei:  royaltyFee.String(),
		TxHash:         ev.TxHash,
		SoldAt:         d.nowFunc().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record trade %s: %w", tokenID, err)
	}

	if err := d.store.UpdateNFTOwner(ctx, tokenID, data.Buyer); err != nil {
		return fmt.Errorf("update owner %s: %w", tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypeNFTSold, Data: notify.SoldPayload{
		NFTContract:    data.NFTContract,
		TokenID:        tokenID,
		Seller:         data.Seller,
		Buyer:          data.Buyer,
		PriceWei:       data.PriceWei.String(),
		PlatformFeeWei: platformFee.String(),
		RoyaltyFeeWei:  royaltyFee.String(),
		TxHash:         ev.TxHash,
	}})
	return nil
}

func (d *Dispatcher) handleCancelled(ctx context.Context, data model.CancelledData) error {
	tokenID := data.TokenID.String()
	if err := d.store.CancelListing(ctx, data.NFTContract, tokenID); err != nil {
		return fmt.Errorf("deactivate listing %s/%s: %w", data.NFTContract, tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypeNFTCancelled, Data: notify.CancelledPayload{
		NFTContract: data.NFTContract,
		TokenID:     tokenID,
		Seller:      data.Seller,
	}})
	return nil
}

func (d *Dispatcher) handlePriceUpdated(ctx context.Context, data model.PriceUpdatedData) error {
	tokenID := data.TokenID.String()
	if err := d.store.UpdateListingPrice(ctx, data.NFTContract, tokenID, data.NewPriceWei.String()); err != nil {
		return fmt.Errorf("update listing price %s/%s: %w", data.NFTContract, tokenID, err)
	}

	d.bus.Broadcast(notify.Message{Type: notify.TypePriceUpdated, Data: notify.PriceUpdatedPayload{
		NFTContract: data.NFTContract,
		TokenID:     tokenID,
		OldPriceWei: data.OldPriceWei.String(),
		NewPriceWei: data.NewPriceWei.String(),
	}})
	return nil
}
