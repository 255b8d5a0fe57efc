package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultGateway = "https://ipfs.io"
	fetchTimeout   = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// ExtractCID pulls the IPFS CID (plus any path) out of a token URI. Supported
// forms: ipfs://<cid>, ipfs://ipfs/<cid>, and gateway URLs containing /ipfs/.
func ExtractCID(tokenURI string) (string, bool) {
	uri := strings.TrimSpace(tokenURI)
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		cid := strings.TrimPrefix(uri, "ipfs://")
		cid = strings.TrimPrefix(cid, "ipfs/")
		cid = strings.Trim(cid, "/")
		return cid, cid != ""
	case strings.Contains(uri, "/ipfs/"):
		idx := strings.LastIndex(uri, "/ipfs/")
		cid := strings.Trim(uri[idx+len("/ipfs/"):], "/")
		return cid, cid != ""
	default:
		return "", false
	}
}

// Resolver fetches token metadata JSON from an IPFS HTTP gateway. Lookups are
// best effort; callers treat failures as "no metadata".
type Resolver struct {
	gateway string
	client  *http.Client
	logger  *zap.Logger
}

func NewResolver(gateway string, logger *zap.Logger) *Resolver {
	if gateway == "" {
		gateway = defaultGateway
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		gateway: strings.TrimRight(gateway, "/"),
		client:  &http.Client{Timeout: fetchTimeout},
		logger:  logger,
	}
}

// Metadata fetches and decodes the JSON document for a CID.
func (r *Resolver) Metadata(ctx context.Context, cid string) (map[string]interface{}, error) {
	if cid == "" {
		return nil, fmt.Errorf("cid is required")
	}

	url := r.gateway + "/ipfs/" + cid
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata fetch status %d", resp.StatusCode)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return doc, nil
}
