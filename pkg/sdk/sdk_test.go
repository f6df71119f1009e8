package sdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/shamank/shdw-sdk-go/internal/testutil/ledgerfake"
	"github.com/shamank/shdw-sdk-go/pkg/config"
	"github.com/shamank/shdw-sdk-go/pkg/storage"
)

func TestNewSDKInvalidConfig(t *testing.T) {
	s, err := NewSDK(&config.Config{})
	if err == nil {
		t.Fatal("expected error for missing ledger address")
	}
	if s != nil {
		t.Fatal("expected nil SDK on error")
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdk.log")
	logger := NewLogger(&config.Config{Debug: true, LogFile: path})
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestWireRejectsBadChainID(t *testing.T) {
	cfg := &config.Config{RPCAddr: "http://localhost:1", Network: config.Network{ChainID: "devnet", Name: "x"}}
	require.NoError(t, cfg.Validate())
	ledger := ledgerfake.New(cfg.Program())

	if _, err := wire(cfg, ledger, storage.NewHTTPEndpoint(cfg.UploadURL, time.Second), nil); err == nil {
		t.Fatal("expected chain id error")
	}
}

func TestWireReadOnly(t *testing.T) {
	cfg := &config.Config{RPCAddr: "http://localhost:1", Network: config.Devnet}
	require.NoError(t, cfg.Validate())

	deps, err := wire(cfg, ledgerfake.New(cfg.Program()), storage.NewHTTPEndpoint(cfg.UploadURL, time.Second), nil)
	require.NoError(t, err)
	require.Nil(t, deps.Signer)
	require.Nil(t, deps.Uploads)
	require.Equal(t, cfg.Program(), deps.Builder.Program)
	require.Equal(t, cfg.Timeouts.ReceiptWait, deps.ReceiptWait)
}

func TestCoreHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{RPCAddr: "http://localhost:1", UploadURL: srv.URL}
	require.NoError(t, cfg.Validate())
	core := &Core{
		conf:     cfg,
		ledger:   ledgerfake.New(cfg.Program()),
		endpoint: storage.NewHTTPEndpoint(srv.URL, time.Second),
	}

	hc := core.Healthcheck()
	hash, err := hc.Ledger()
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, hash)
	require.NoError(t, hc.Endpoint())

	_, err = hc.GRPC()
	require.ErrorIs(t, err, ErrHealthUnsupported)
}

func TestCoreListObjectsNeedsHTTPTarget(t *testing.T) {
	core := &Core{conf: &config.Config{}, endpoint: storage.NewIPFSEndpoint(nil)}
	_, err := core.ListObjects(context.Background(), common.HexToAddress("0x01"))
	require.ErrorIs(t, err, storage.ErrEndpointRejected)
}

func TestCoreCloseRunsClosersOnce(t *testing.T) {
	calls := 0
	core := &Core{closers: []func(){func() { calls++ }}}
	core.Close()
	core.Close()
	require.Equal(t, 1, calls)
}
