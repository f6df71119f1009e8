package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/kubo/client/rpc"
	"github.com/multiformats/go-multihash"
	"go.uber.org/zap"
)

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data. It equals the
// id Kubo assigns with raw leaves for payloads that fit in one chunk.
func ComputeCID(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// VerifyCID checks data against c when c is a raw-codec CID. Other codecs
// address DAG nodes whose id cannot be recomputed from the bytes alone and
// pass unchecked.
func VerifyCID(c cid.Cid, data []byte) error {
	if c.Type() != cid.Raw {
		return nil
	}
	pref := c.Prefix()
	sum, err := pref.Sum(data)
	if err != nil {
		return err
	}
	if !sum.Equals(c) {
		return fmt.Errorf("content hash %s does not match %s", sum, c)
	}
	return nil
}

// NewIPFSClient constructs a Kubo HTTP API client pointed at url.
func NewIPFSClient(url string, timeout time.Duration) (*rpc.HttpApi, error) {
	httpClient := http.Client{Timeout: timeout}
	client, err := rpc.NewURLApiWithClient(url, &httpClient)
	if err != nil {
		zap.L().Error("Connection failed to IPFS", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	return client, nil
}

// IPFSEndpoint stores files through a Kubo node's `add` command. It is an
// alternative to the HTTP upload service; authorization fields are ignored.
type IPFSEndpoint struct {
	api *rpc.HttpApi
}

// NewIPFSEndpoint wraps a Kubo client.
func NewIPFSEndpoint(api *rpc.HttpApi) *IPFSEndpoint {
	return &IPFSEndpoint{api: api}
}

// Upload implements Endpoint. The locator is ipfs://<cid>.
func (e *IPFSEndpoint) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: ipfs client not configured", ErrEndpointRejected)
	}
	data, err := req.File.Bytes()
	if err != nil {
		return nil, err
	}

	resp, err := e.api.Request("add").
		Option("cid-version", 1).
		Option("raw-leaves", true).
		Option("pin", true).
		FileBody(bytes.NewReader(data)).
		Send(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Error("error uploading to ipfs", zap.String("file", req.File.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func(resp *rpc.Response) {
		if err := resp.Close(); err != nil {
			zap.L().Debug("error closing ipfs response", zap.Error(err))
		}
	}(resp)

	if resp.Error != nil {
		zap.L().Error("ipfs add command returned error", zap.Error(resp.Error))
		return nil, fmt.Errorf("%w: %v", ErrEndpointRejected, resp.Error)
	}

	body, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: read ipfs add response: %v", ErrNetwork, err)
	}
	var addResp struct {
		Hash string `json:"Hash"`
	}
	if err := json.Unmarshal(body, &addResp); err != nil {
		return nil, fmt.Errorf("%w: decode ipfs add response: %v", ErrNetwork, err)
	}
	if req.CID != "" && len(data) <= rawLeafChunk && addResp.Hash != req.CID {
		zap.L().Warn("IPFS returned unexpected CID",
			zap.String("expected", req.CID),
			zap.String("got", addResp.Hash))
	}

	zap.L().Debug("Successfully uploaded to IPFS", zap.String("hash", addResp.Hash))
	return &UploadResponse{
		FinalizedLocations: []string{IpfsPrefix + addResp.Hash},
		Message:            "added",
	}, nil
}

// rawLeafChunk is Kubo's default chunk size; larger files become DAGs.
const rawLeafChunk = 256 << 10

// ipfsFetcher reads content through `ipfs cat`.
type ipfsFetcher struct {
	api *rpc.HttpApi
}

// Fetch reads the content addressed by hash and verifies raw-codec CIDs.
func (f *ipfsFetcher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	hash = formatHash(hash)
	zap.L().Debug("Hash Used to retrieve from IPFS", zap.String("hash", hash))

	if f.api == nil {
		return nil, fmt.Errorf("ipfs client not configured")
	}
	cID, err := cid.Parse(hash)
	if err != nil {
		zap.L().Error("error parsing the ipfs hash", zap.String("hash", hash), zap.Error(err))
		return nil, err
	}

	resp, err := f.api.Request("cat", cID.String()).Send(ctx)
	if err != nil {
		zap.L().Error("error executing the cat command in ipfs", zap.String("hash", hash), zap.Error(err))
		return nil, err
	}
	defer func(resp *rpc.Response) {
		if err := resp.Close(); err != nil {
			zap.L().Debug("error closing response in ipfs", zap.String("hash", hash), zap.Error(err))
		}
	}(resp)
	if resp.Error != nil {
		return nil, resp.Error
	}

	content, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, err
	}
	if err := VerifyCID(cID, content); err != nil {
		zap.L().Error("IPFS hash verification failed", zap.String("expectedHash", hash), zap.Error(err))
		return nil, err
	}
	return content, nil
}
