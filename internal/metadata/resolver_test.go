package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractCID(t *testing.T) {
	cases := []struct {
		name     string
		tokenURI string
		want     string
		ok       bool
	}{
		{"plain ipfs scheme", "ipfs://QmXyz123", "QmXyz123", true},
		{"ipfs scheme with ipfs path", "ipfs://ipfs/QmXyz123", "QmXyz123", true},
		{"gateway url", "https://ipfs.io/ipfs/QmXyz123", "QmXyz123", true},
		{"gateway url with trailing slash", "https://ipfs.io/ipfs/QmXyz123/", "QmXyz123", true},
		{"cid with path", "ipfs://QmXyz123/metadata.json", "QmXyz123/metadata.json", true},
		{"whitespace trimmed", "  ipfs://QmXyz123  ", "QmXyz123", true},
		{"empty", "", "", false},
		{"plain https url", "https://example.com/token/7", "", false},
		{"bare scheme", "ipfs://", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractCID(tc.tokenURI)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ExtractCID(%q) = (%q, %v), want (%q, %v)", tc.tokenURI, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestMetadataFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/QmXyz123" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Token #7","image":"ipfs://QmImage"}`))
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, nil)

	doc, err := resolver.Metadata(context.Background(), "QmXyz123")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if doc["name"] != "Token #7" {
		t.Fatalf("name mismatch: %v", doc["name"])
	}

	if _, err := resolver.Metadata(context.Background(), "QmMissing"); err == nil {
		t.Fatalf("expected error for missing document")
	}
}

func TestMetadataRequiresCID(t *testing.T) {
	resolver := NewResolver("", nil)
	if _, err := resolver.Metadata(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty cid")
	}
}
