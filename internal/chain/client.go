package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"marketScope/internal/market"
	"marketScope/internal/model"
)

// Client wraps go-ethereum RPC and provides the reads the sync loop needs.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	nftABI    abi.ABI
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	nftABI, err := market.NFTABI()
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("parse nft abi: %w", err)
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		nftABI:    nftABI,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// CurrentHeight returns the latest observed block number.
func (c *Client) CurrentHeight(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// FetchLogs returns logs emitted by one contract for one event signature in
// the given inclusive block range.
func (c *Client) FetchLogs(ctx context.Context, contract common.Address, topic0 common.Hash, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{topic0}},
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// RoyaltyInfo performs an ERC-2981 royaltyInfo eth_call against the NFT
// contract. Passing the basis-point denominator (10000) as salePrice makes
// the returned amount equal to the configured basis points.
func (c *Client) RoyaltyInfo(ctx context.Context, nft common.Address, tokenID, salePrice *big.Int) (model.RoyaltyInfo, error) {
	input, err := c.nftABI.Pack("royaltyInfo", tokenID, salePrice)
	if err != nil {
		return model.RoyaltyInfo{}, fmt.Errorf("pack royaltyInfo: %w", err)
	}

	output, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &nft, Data: input}, nil)
	if err != nil {
		return model.RoyaltyInfo{}, fmt.Errorf("call royaltyInfo: %w", err)
	}

	values, err := c.nftABI.Unpack("royaltyInfo", output)
	if err != nil {
		return model.RoyaltyInfo{}, fmt.Errorf("unpack royaltyInfo: %w", err)
	}
	if len(values) != 2 {
		return model.RoyaltyInfo{}, fmt.Errorf("unexpected royaltyInfo values: %d", len(values))
	}
	receiver, ok := values[0].(common.Address)
	if !ok {
		return model.RoyaltyInfo{}, fmt.Errorf("receiver is not an address")
	}
	amount, ok := values[1].(*big.Int)
	if !ok || amount == nil {
		return model.RoyaltyInfo{}, fmt.Errorf("royalty amount is not a big int")
	}

	return model.RoyaltyInfo{Receiver: receiver.Hex(), Amount: amount}, nil
}
