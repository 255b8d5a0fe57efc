package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"marketScope/internal/model"
)

var (
	nftAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	marketAddr = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	seller     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	buyer      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	receiver   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func mustEvent(t *testing.T, source func() (abi.ABI, error), name string) abi.Event {
	t.Helper()
	parsed, err := source()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	event, ok := parsed.Events[name]
	if !ok {
		t.Fatalf("event %s missing from abi", name)
	}
	return event
}

func packData(t *testing.T, event abi.Event, values ...interface{}) []byte {
	t.Helper()
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", event.Name, err)
	}
	return data
}

func newLog(address common.Address, topics []common.Hash, data []byte) types.Log {
	return types.Log{
		Address:     address,
		Topics:      topics,
		Data:        data,
		BlockNumber: 12,
		Index:       3,
		TxHash:      common.HexToHash("0xbeef"),
	}
}

func decode(t *testing.T, log types.Log) model.ChainEvent {
	t.Helper()
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	ev, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestDecodeMinted(t *testing.T) {
	event := mustEvent(t, NFTABI, "Minted")
	log := newLog(nftAddr, []common.Hash{
		event.ID,
		common.BigToHash(big.NewInt(7)),
		common.BytesToHash(seller.Bytes()),
	}, packData(t, event, "ipfs://QmMeta"))

	ev := decode(t, log)
	if ev.Kind != model.KindMinted {
		t.Fatalf("kind mismatch: %s", ev.Kind)
	}
	if ev.BlockNumber != 12 || ev.LogIndex != 3 {
		t.Fatalf("position mismatch: %d/%d", ev.BlockNumber, ev.LogIndex)
	}

	data := ev.Data.(model.MintedData)
	if data.TokenID.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("token id mismatch: %s", data.TokenID)
	}
	if data.Owner != seller.Hex() {
		t.Fatalf("owner mismatch: %s", data.Owner)
	}
	if data.TokenURI != "ipfs://QmMeta" {
		t.Fatalf("token uri mismatch: %s", data.TokenURI)
	}
}

func TestDecodeTransfer(t *testing.T) {
	event := mustEvent(t, NFTABI, "Transfer")
	log := newLog(nftAddr, []common.Hash{
		event.ID,
		common.BytesToHash(seller.Bytes()),
		common.BytesToHash(buyer.Bytes()),
		common.BigToHash(big.NewInt(9)),
	}, nil)

	ev := decode(t, log)
	data := ev.Data.(model.TransferData)
	if data.From != seller.Hex() || data.To != buyer.Hex() {
		t.Fatalf("address mismatch: %s -> %s", data.From, data.To)
	}
	if data.TokenID.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("token id mismatch: %s", data.TokenID)
	}
}

func TestDecodeDefaultRoyaltyUpdated(t *testing.T) {
	event := mustEvent(t, NFTABI, "DefaultRoyaltyUpdated")
	log := newLog(nftAddr, []common.Hash{
		event.ID,
		common.BytesToHash(receiver.Bytes()),
	}, packData(t, event, big.NewInt(500)))

	ev := decode(t, log)
	data := ev.Data.(model.DefaultRoyaltyData)
	if data.Receiver != receiver.Hex() || data.FeeBps != 500 {
		t.Fatalf("payload mismatch: %+v", data)
	}
}

func TestDecodeTokenRoyaltyUpdated(t *testing.T) {
	event := mustEvent(t, NFTABI, "TokenRoyaltyUpdated")
	log := newLog(nftAddr, []common.Hash{
		event.ID,
		common.BigToHash(big.NewInt(4)),
		common.BytesToHash(receiver.Bytes()),
	}, packData(t, event, big.NewInt(250)))

	ev := decode(t, log)
	data := ev.Data.(model.TokenRoyaltyData)
	if data.TokenID.Cmp(big.NewInt(4)) != 0 || data.Receiver != receiver.Hex() || data.FeeBps != 250 {
		t.Fatalf("payload mismatch: %+v", data)
	}
}

func TestDecodeListed(t *testing.T) {
	event := mustEvent(t, MarketplaceABI, "Listed")
	price, _ := new(big.Int).SetString("1000000000000000000", 10)
	log := newLog(marketAddr, []common.Hash{
		event.ID,
		common.BytesToHash(nftAddr.Bytes()),
		common.BigToHash(big.NewInt(7)),
		common.BytesToHash(seller.Bytes()),
	}, packData(t, event, price))

	ev := decode(t, log)
	data := ev.Data.(model.ListedData)
	if data.NFTContract != nftAddr.Hex() || data.Seller != seller.Hex() {
		t.Fatalf("address mismatch: %+v", data)
	}
	if data.PriceWei.Cmp(price) != 0 {
		t.Fatalf("price mismatch: %s", data.PriceWei)
	}
}

func TestDecodeSold(t *testing.T) {
	event := mustEvent(t, MarketplaceABI, "Sold")
	price, _ := new(big.Int).SetString("2500000000000000000", 10)
	log := newLog(marketAddr, []common.Hash{
		event.ID,
		common.BytesToHash(nftAddr.Bytes()),
		common.BigToHash(big.NewInt(7)),
	}, packData(t, event, seller, buyer, price))

	ev := decode(t, log)
	data := ev.Data.(model.SoldData)
	if data.Seller != seller.Hex() || data.Buyer != buyer.Hex() {
		t.Fatalf("party mismatch: %+v", data)
	}
	if data.PriceWei.Cmp(price) != 0 {
		t.Fatalf("price mismatch: %s", data.PriceWei)
	}
	if ev.TxHash != common.HexToHash("0xbeef").Hex() {
		t.Fatalf("tx hash mismatch: %s", ev.TxHash)
	}
}

func TestDecodeCancelled(t *testing.T) {
	event := mustEvent(t, MarketplaceABI, "Cancelled")
	log := newLog(marketAddr, []common.Hash{
		event.ID,
		common.BytesToHash(nftAddr.Bytes()),
		common.BigToHash(big.NewInt(7)),
		common.BytesToHash(seller.Bytes()),
	}, nil)

	ev := decode(t, log)
	data := ev.Data.(model.CancelledData)
	if data.NFTContract != nftAddr.Hex() || data.Seller != seller.Hex() {
		t.Fatalf("payload mismatch: %+v", data)
	}
}

func TestDecodePriceUpdated(t *testing.T) {
	event := mustEvent(t, MarketplaceABI, "PriceUpdated")
	log := newLog(marketAddr, []common.Hash{
		event.ID,
		common.BytesToHash(nftAddr.Bytes()),
		common.BigToHash(big.NewInt(7)),
	}, packData(t, event, big.NewInt(100), big.NewInt(200)))

	ev := decode(t, log)
	data := ev.Data.(model.PriceUpdatedData)
	if data.OldPriceWei.Cmp(big.NewInt(100)) != 0 || data.NewPriceWei.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("price mismatch: %+v", data)
	}
}

func TestDecodeRejectsUnknownLogs(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	if _, err := decoder.Decode(types.Log{}); err == nil {
		t.Fatalf("expected error for log without topics")
	}

	unknown := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
	if _, err := decoder.Decode(unknown); err == nil {
		t.Fatalf("expected error for unsupported topic0")
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	// Minted with a missing owner topic.
	event := mustEvent(t, NFTABI, "Minted")
	log := newLog(nftAddr, []common.Hash{
		event.ID,
		common.BigToHash(big.NewInt(7)),
	}, packData(t, event, "ipfs://QmMeta"))

	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for missing indexed topic")
	}
}

func TestTopic0(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	minted := mustEvent(t, NFTABI, "Minted")
	topic, err := decoder.Topic0(model.KindMinted)
	if err != nil {
		t.Fatalf("topic0: %v", err)
	}
	if topic != minted.ID {
		t.Fatalf("topic mismatch: %s != %s", topic, minted.ID)
	}

	if _, err := decoder.Topic0(model.EventKind(99)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
