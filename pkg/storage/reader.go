package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"
)

// Fetcher reads content by locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Reader reads back uploaded content. ipfs:// locators go through the Kubo
// API when one is configured; everything else goes through the HTTP gateway.
type Reader struct {
	// GatewayURL prefixes bare CIDs, e.g. "https://gateway.example/ipfs/".
	GatewayURL string

	gateway Fetcher
	ipfs    Fetcher
}

// NewReader returns a Reader. api may be nil.
func NewReader(api *rpc.HttpApi, gatewayURL string, timeout time.Duration) *Reader {
	r := &Reader{
		GatewayURL: gatewayURL,
		gateway:    gatewayFetcher{client: &http.Client{Timeout: timeout}},
	}
	if api != nil {
		r.ipfs = &ipfsFetcher{api: api}
	}
	return r
}

// ReadFile fetches the content at locator.
func (r *Reader) ReadFile(ctx context.Context, locator string) ([]byte, error) {
	switch {
	case strings.HasPrefix(locator, IpfsPrefix) && r.ipfs != nil:
		return r.ipfs.Fetch(ctx, locator)
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return r.gateway.Fetch(ctx, locator)
	default:
		hash := formatHash(locator)
		data, err := r.gateway.Fetch(ctx, r.GatewayURL+hash)
		if err != nil {
			return nil, err
		}
		if c, perr := cid.Parse(hash); perr == nil {
			if err := VerifyCID(c, data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
}

type gatewayFetcher struct {
	client *http.Client
}

func (g gatewayFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	zap.L().Debug("Getting gateway file", zap.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
