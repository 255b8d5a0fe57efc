package indexer

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"marketScope/internal/market"
	"marketScope/internal/model"
	"marketScope/internal/notify"
)

// stubReader is an in-memory ChainReader fed with pre-built logs.
type stubReader struct {
	mu          sync.Mutex
	height      uint64
	heightErr   error
	heightDelay time.Duration
	heightCalls int
	logs        []types.Log
	royalty     func(tokenID, salePrice *big.Int) (model.RoyaltyInfo, error)
}

func (r *stubReader) CurrentHeight(_ context.Context) (uint64, error) {
	r.mu.Lock()
	r.heightCalls++
	height := r.height
	err := r.heightErr
	delay := r.heightDelay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return 0, err
	}
	return height, nil
}

func (r *stubReader) FetchLogs(_ context.Context, contract common.Address, topic0 common.Hash, fromBlock, toBlock uint64) ([]types.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Log, 0)
	for _, lg := range r.logs {
		if lg.Address != contract || len(lg.Topics) == 0 || lg.Topics[0] != topic0 {
			continue
		}
		if lg.BlockNumber < fromBlock || lg.BlockNumber > toBlock {
			continue
		}
		out = append(out, lg)
	}
	return out, nil
}

func (r *stubReader) RoyaltyInfo(_ context.Context, _ common.Address, tokenID, salePrice *big.Int) (model.RoyaltyInfo, error) {
	if r.royalty != nil {
		return r.royalty(tokenID, salePrice)
	}
	return model.RoyaltyInfo{Amount: new(big.Int)}, nil
}

func (r *stubReader) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heightCalls
}

// stubResolver serves a fixed metadata document.
type stubResolver struct {
	doc map[string]interface{}
	err error
}

func (r *stubResolver) Metadata(_ context.Context, _ string) (map[string]interface{}, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

// recordingBus captures broadcast messages in order.
type recordingBus struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (b *recordingBus) Broadcast(msg notify.Message) {
	b.mu.Lock()
	b.messages = append(b.messages, msg)
	b.mu.Unlock()
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, msg := range b.messages {
		out = append(out, msg.Type)
	}
	return out
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromBig(value *big.Int) common.Hash {
	return common.BigToHash(value)
}

func mintedLog(t *testing.T, nft common.Address, block uint64, idx uint, tokenID *big.Int, owner common.Address, tokenURI string) types.Log {
	t.Helper()
	nftABI, err := market.NFTABI()
	if err != nil {
		t.Fatalf("nft abi: %v", err)
	}
	event := nftABI.Events["Minted"]
	data, err := event.Inputs.NonIndexed().Pack(tokenURI)
	if err != nil {
		t.Fatalf("pack minted: %v", err)
	}
	return types.Log{
		Address:     nft,
		Topics:      []common.Hash{event.ID, topicFromBig(tokenID), topicFromAddress(owner)},
		Data:        data,
		BlockNumber: block,
		Index:       idx,
		TxHash:      common.HexToHash("0x01"),
	}
}

func transferLog(t *testing.T, nft common.Address, block uint64, idx uint, from, to common.Address, tokenID *big.Int) types.Log {
	t.Helper()
	nftABI, err := market.NFTABI()
	if err != nil {
		t.Fatalf("nft abi: %v", err)
	}
	event := nftABI.Events["Transfer"]
	return types.Log{
		Address:     nft,
		Topics:      []common.Hash{event.ID, topicFromAddress(from), topicFromAddress(to), topicFromBig(tokenID)},
		BlockNumber: block,
		Index:       idx,
		TxHash:      common.HexToHash("0x01"),
	}
}

func listedLog(t *testing.T, marketplace, nft common.Address, block uint64, idx uint, tokenID *big.Int, seller common.Address, price *big.Int) types.Log {
	t.Helper()
	marketABI, err := market.MarketplaceABI()
	if err != nil {
		t.Fatalf("marketplace abi: %v", err)
	}
	event := marketABI.Events["Listed"]
	data, err := event.Inputs.NonIndexed().Pack(price)
	if err != nil {
		t.Fatalf("pack listed: %v", err)
	}
	return types.Log{
		Address:     marketplace,
		Topics:      []common.Hash{event.ID, topicFromAddress(nft), topicFromBig(tokenID), topicFromAddress(seller)},
		Data:        data,
		BlockNumber: block,
		Index:       idx,
		TxHash:      common.HexToHash("0x02"),
	}
}

func soldLog(t *testing.T, marketplace, nft common.Address, block uint64, idx uint, tokenID *big.Int, seller, buyer common.Address, price *big.Int) types.Log {
	t.Helper()
	marketABI, err := market.MarketplaceABI()
	if err != nil {
		t.Fatalf("marketplace abi: %v", err)
	}
	event := marketABI.Events["Sold"]
	data, err := event.Inputs.NonIndexed().Pack(seller, buyer, price)
	if err != nil {
		t.Fatalf("pack sold: %v", err)
	}
	return types.Log{
		Address:     marketplace,
		Topics:      []common.Hash{event.ID, topicFromAddress(nft), topicFromBig(tokenID)},
		Data:        data,
		BlockNumber: block,
		Index:       idx,
		TxHash:      common.HexToHash("0x03"),
	}
}
