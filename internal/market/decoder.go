package market

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"marketScope/internal/model"
)

// Decoder converts raw contract logs into tagged chain events.
type Decoder struct {
	nft         abi.ABI
	marketplace abi.ABI
	topicToKind map[common.Hash]model.EventKind
}

// NewDecoder builds a decoder for the NFT and marketplace event sets.
func NewDecoder() (*Decoder, error) {
	nft, err := NFTABI()
	if err != nil {
		return nil, fmt.Errorf("parse nft abi: %w", err)
	}
	marketplace, err := MarketplaceABI()
	if err != nil {
		return nil, fmt.Errorf("parse marketplace abi: %w", err)
	}

	topicToKind := map[common.Hash]model.EventKind{
		nft.Events["Minted"].ID:                model.KindMinted,
		nft.Events["Transfer"].ID:              model.KindTransfer,
		nft.Events["DefaultRoyaltyUpdated"].ID: model.KindDefaultRoyaltyUpdated,
		nft.Events["TokenRoyaltyUpdated"].ID:   model.KindTokenRoyaltyUpdated,
		marketplace.Events["Listed"].ID:        model.KindListed,
		marketplace.Events["Sold"].ID:          model.KindSold,
		marketplace.Events["Cancelled"].ID:     model.KindCancelled,
		marketplace.Events["PriceUpdated"].ID:  model.KindPriceUpdated,
	}

	return &Decoder{
		nft:         nft,
		marketplace: marketplace,
		topicToKind: topicToKind,
	}, nil
}

// Topic0 returns the event signature hash for a kind.
func (d *Decoder) Topic0(kind model.EventKind) (common.Hash, error) {
	event, err := d.event(kind)
	if err != nil {
		return common.Hash{}, err
	}
	return event.ID, nil
}

func (d *Decoder) event(kind model.EventKind) (abi.Event, error) {
	switch kind {
	case model.KindMinted:
		return d.nft.Events["Minted"], nil
	case model.KindTransfer:
		return d.nft.Events["Transfer"], nil
	case model.KindDefaultRoyaltyUpdated:
		return d.nft.Events["DefaultRoyaltyUpdated"], nil
	case model.KindTokenRoyaltyUpdated:
		return d.nft.Events["TokenRoyaltyUpdated"], nil
	case model.KindListed:
		return d.marketplace.Events["Listed"], nil
	case model.KindSold:
		return d.marketplace.Events["Sold"], nil
	case model.KindCancelled:
		return d.marketplace.Events["Cancelled"], nil
	case model.KindPriceUpdated:
		return d.marketplace.Events["PriceUpdated"], nil
	default:
		return abi.Event{}, fmt.Errorf("unknown event kind: %d", kind)
	}
}

// Decode converts a raw log into a ChainEvent. Logs whose payload cannot be
// decoded yield an error and are dropped by the caller.
func (d *Decoder) Decode(log types.Log) (model.ChainEvent, error) {
	if len(log.Topics) == 0 {
		return model.ChainEvent{}, fmt.Errorf("missing topics")
	}
	kind, ok := d.topicToKind[log.Topics[0]]
	if !ok {
		return model.ChainEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	var (
		data interface{}
		err  error
	)
	switch kind {
	case model.KindMinted:
		data, err = d.decodeMinted(log)
	case model.KindTransfer:
		data, err = d.decodeTransfer(log)
	case model.KindDefaultRoyaltyUpdated:
		data, err = d.decodeDefaultRoyalty(log)
	case model.KindTokenRoyaltyUpdated:
		data, err = d.decodeTokenRoyalty(log)
	case model.KindListed:
		data, err = d.decodeListed(log)
	case model.KindSold:
		data, err = d.decodeSold(log)
	case model.KindCancelled:
		data, err = d.decodeCancelled(log)
	case model.KindPriceUpdated:
		data, err = d.decodePriceUpdated(log)
	default:
		err = fmt.Errorf("unhandled event kind: %s", kind)
	}
	if err != nil {
		return model.ChainEvent{}, fmt.Errorf("decode %s: %w", kind, err)
	}

	return model.ChainEvent{
		Kind:        kind,
		Contract:    log.Address.Hex(),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
		TxHash:      log.TxHash.Hex(),
		Data:        data,
	}, nil
}

func (d *Decoder) decodeMinted(log types.Log) (model.MintedData, error) {
	event := d.nft.Events["Minted"]

	var indexed struct {
		TokenId *big.Int
		Owner   common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.MintedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.MintedData{}, err
	}
	tokenURI, ok := values[0].(string)
	if !ok {
		return model.MintedData{}, fmt.Errorf("tokenURI is not a string")
	}

	return model.MintedData{
		TokenID:  indexed.TokenId,
		Owner:    indexed.Owner.Hex(),
		TokenURI: tokenURI,
	}, nil
}

func (d *Decoder) decodeTransfer(log types.Log) (model.TransferData, error) {
	event := d.nft.Events["Transfer"]

	var indexed struct {
		From    common.Address
		To      common.Address
		TokenId *big.Int
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.TransferData{}, err
	}

	return model.TransferData{
		From:    indexed.From.Hex(),
		To:      indexed.To.Hex(),
		TokenID: indexed.TokenId,
	}, nil
}

func (d *Decoder) decodeDefaultRoyalty(log types.Log) (model.DefaultRoyaltyData, error) {
	event := d.nft.Events["DefaultRoyaltyUpdated"]

	var indexed struct {
		Receiver common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.DefaultRoyaltyData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.DefaultRoyaltyData{}, err
	}
	bps, err := asBasisPoints(values[0])
	if err != nil {
		return model.DefaultRoyaltyData{}, err
	}

	return model.DefaultRoyaltyData{
		Receiver: indexed.Receiver.Hex(),
		FeeBps:   bps,
	}, nil
}

func (d *Decoder) decodeTokenRoyalty(log types.Log) (model.TokenRoyaltyData, error) {
	event := d.nft.Events["TokenRoyaltyUpdated"]

	var indexed struct {
		TokenId  *big.Int
		Receiver common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.TokenRoyaltyData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.TokenRoyaltyData{}, err
	}
	bps, err := asBasisPoints(values[0])
	if err != nil {
		return model.TokenRoyaltyData{}, err
	}

	return model.TokenRoyaltyData{
		TokenID:  indexed.TokenId,
		Receiver: indexed.Receiver.Hex(),
		FeeBps:   bps,
	}, nil
}

func (d *Decoder) decodeListed(log types.Log) (model.ListedData, error) {
	event := d.marketplace.Events["Listed"]

	var indexed struct {
		NftContract common.Address
		TokenId     *big.Int
		Seller      common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.ListedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.ListedData{}, err
	}
	price, err := asBigInt(values[0])
	if err != nil {
		return model.ListedData{}, fmt.Errorf("price: %w", err)
	}

	return model.ListedData{
		NFTContract: indexed.NftContract.Hex(),
		TokenID:     indexed.TokenId,
		Seller:      indexed.Seller.Hex(),
		PriceWei:    price,
	}, nil
}

func (d *Decoder) decodeSold(log types.Log) (model.SoldData, error) {
	event := d.marketplace.Events["Sold"]

	var indexed struct {
		NftContract common.Address
		TokenId     *big.Int
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.SoldData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return model.SoldData{}, err
	}
	seller, err := asAddress(values[0])
	if err != nil {
		return model.SoldData{}, fmt.Errorf("seller: %w", err)
	}
	buyer, err := asAddress(values[1])
	if err != nil {
		return model.SoldData{}, fmt.Errorf("buyer: %w", err)
	}
	price, err := asBigInt(values[2])
	if err != nil {
		return model.SoldData{}, fmt.Errorf("price: %w", err)
	}

	return model.SoldData{
		NFTContract: indexed.NftContract.Hex(),
		TokenID:     indexed.TokenId,
		Seller:      seller.Hex(),
		Buyer:       buyer.Hex(),
		PriceWei:    price,
	}, nil
}

func (d *Decoder) decodeCancelled(log types.Log) (model.CancelledData, error) {
	event := d.marketplace.Events["Cancelled"]

	var indexed struct {
		NftContract common.Address
		TokenId     *big.Int
		Seller      common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.CancelledData{}, err
	}

	return model.CancelledData{
		NFTContract: indexed.NftContract.Hex(),
		TokenID:     indexed.TokenId,
		Seller:      indexed.Seller.Hex(),
	}, nil
}

func (d *Decoder) decodePriceUpdated(log types.Log) (model.PriceUpdatedData, error) {
	event := d.marketplace.Events["PriceUpdated"]

	var indexed struct {
		NftContract common.Address
		TokenId     *big.Int
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.PriceUpdatedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.PriceUpdatedData{}, err
	}
	oldPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PriceUpdatedData{}, fmt.Errorf("old price: %w", err)
	}
	newPrice, err := asBigInt(values[1])
	if err != nil {
		return model.PriceUpdatedData{}, fmt.Errorf("new price: %w", err)
	}

	return model.PriceUpdatedData{
		NFTContract: indexed.NftContract.Hex(),
		TokenID:     indexed.TokenId,
		OldPriceWei: oldPrice,
		NewPriceWei: newPrice,
	}, nil
}

func parseIndexed(out interface{}, event abi.Event, log types.Log) error {
	args := indexedArguments(event.Inputs)
	if len(log.Topics) != len(args)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(args)+1, len(log.Topics))
	}
	if err := abi.ParseTopics(out, args, log.Topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte, want int) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	n, ok := value.(*big.Int)
	if !ok || n == nil {
		return nil, fmt.Errorf("value is not a big int: %T", value)
	}
	return n, nil
}

func asAddress(value interface{}) (common.Address, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("value is not an address: %T", value)
	}
	return addr, nil
}

func asBasisPoints(value interface{}) (uint32, error) {
	n, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > math.MaxUint32 {
		return 0, fmt.Errorf("fee numerator out of range: %s", n)
	}
	return uint32(n.Uint64()), nil
}
