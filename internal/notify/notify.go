package notify

// Message types broadcast to subscribers.
const (
	TypeNFTMinted             = "nftMinted"
	TypeNFTTransferred        = "nftTransferred"
	TypeNFTListed             = "nftListed"
	TypeNFTSold               = "nftSold"
	TypeNFTCancelled          = "nftCancelled"
	TypePriceUpdated          = "priceUpdated"
	TypeDefaultRoyaltyUpdated = "defaultRoyaltyUpdated"
	TypeTokenRoyaltyUpdated   = "tokenRoyaltyUpdated"
)

// Message is one typed notification payload.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broadcaster delivers messages to subscribers. Delivery is fire-and-forget:
// implementations never block the caller and give no delivery guarantee.
type Broadcaster interface {
	Broadcast(msg Message)
}

// NopBroadcaster discards all messages.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(Message) {}

// MintedPayload is the nftMinted notification body. Metadata carries the
// resolved token document when the IPFS fetch succeeded, and is omitted
// otherwise.
type MintedPayload struct {
	TokenID  string                 `json:"token_id"`
	Owner    string                 `json:"owner"`
	TokenURI string                 `json:"token_uri"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TransferredPayload is the nftTransferred notification body.
type TransferredPayload struct {
	TokenID string `json:"token_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// ListedPayload is the nftListed notification body.
type ListedPayload struct {
	NFTContract string `json:"nft_contract"`
	TokenID     string `json:"token_id"`
	Seller      string `json:"seller"`
	PriceWei    string `json:"price_wei"`
}

// SoldPayload is the nftSold notification body. All amounts are wei strings.
type SoldPayload struct {
	NFTContract    string `json:"nft_contract"`
	TokenID        string `json:"token_id"`
	Seller         string `json:"seller"`
	Buyer          string `json:"buyer"`
	PriceWei       string `json:"price_wei"`
	PlatformFeeWei string `json:"platform_fee_wei"`
	RoyaltyFeeWei  string `json:"royalty_fee_wei"`
	TxHash         string `json:"tx_hash"`
}

// CancelledPayload is the nftCancelled notification body.
type CancelledPayload struct {
	NFTContract string `json:"nft_contract"`
	TokenID     string `json:"token_id"`
	Seller      string `json:"seller"`
}

// PriceUpdatedPayload is the priceUpdated notification body.
type PriceUpdatedPayload struct {
	NFTContract string `json:"nft_contract"`
	TokenID     string `json:"token_id"`
	OldPriceWei string `json:"old_price_wei"`
	NewPriceWei string `json:"new_price_wei"`
}

// DefaultRoyaltyPayload is the defaultRoyaltyUpdated notification body.
type DefaultRoyaltyPayload struct {
	Receiver string `json:"receiver"`
	FeeBps   uint32 `json:"fee_bps"`
}

// TokenRoyaltyPayload is the tokenRoyaltyUpdated notification body.
type TokenRoyaltyPayload struct {
	TokenID  string `json:"token_id"`
	Receiver string `json:"receiver"`
	FeeBps   uint32 `json:"fee_bps"`
}
