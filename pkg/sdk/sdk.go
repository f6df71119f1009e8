// Package sdk exposes the high-level storage SDK entry points. It wires
// together ledger access (JSON-RPC or gRPC), the storage program instruction
// builder, confirmation polling, the upload endpoint (HTTP or IPFS) and the
// content reader behind a single account manager.
package sdk

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/shamank/shdw-sdk-go/pkg/account"
	"github.com/shamank/shdw-sdk-go/pkg/blockchain"
	"github.com/shamank/shdw-sdk-go/pkg/config"
	"github.com/shamank/shdw-sdk-go/pkg/instruction"
	"github.com/shamank/shdw-sdk-go/pkg/model"
	"github.com/shamank/shdw-sdk-go/pkg/storage"
	"github.com/shamank/shdw-sdk-go/pkg/upload"
)

// ShdwSDK is the public interface of the SDK.
type ShdwSDK interface {
	// Create reserves a new storage account of size bytes.
	Create(ctx context.Context, label string, size uint64) (account.StorageAccount, error)
	// CreateWithVersion is Create with an explicit account layout.
	CreateWithVersion(ctx context.Context, v account.Version, label string, size uint64) (account.StorageAccount, error)
	// Resize grows (delta > 0) or shrinks (delta < 0) an account.
	Resize(ctx context.Context, addr common.Address, delta int64) (account.StorageAccount, error)
	// MarkImmutable makes an account permanent.
	MarkImmutable(ctx context.Context, addr common.Address) (account.StorageAccount, error)
	// Upload stores files in an account.
	Upload(ctx context.Context, addr common.Address, files []model.ShadowFile) ([]model.UploadResult, error)
	// Account refreshes and returns an account.
	Account(ctx context.Context, addr common.Address) (account.StorageAccount, error)
	// Cached returns the last known snapshot of an account.
	Cached(addr common.Address) (account.StorageAccount, bool)
	// Accounts lists every account of the configured owner.
	Accounts(ctx context.Context) ([]account.StorageAccount, error)
	// ListObjects returns the file names stored in an account.
	ListObjects(ctx context.Context, addr common.Address) ([]string, error)
	// ReadFile fetches stored content by locator.
	ReadFile(ctx context.Context, locator string) ([]byte, error)
	// Healthcheck probes the ledger and the upload endpoint.
	Healthcheck() Healthcheck
	// Close releases network clients.
	Close()
}

// init configures a default global zap logger for the SDK. Applications may
// replace it with zap.ReplaceGlobals(...) if they need custom logging.
func init() {
	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := c.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

// NewLogger builds a logger honoring cfg.Debug and cfg.LogFile. With a log
// file, output goes through a rotating writer (100MB, 5 backups, 30 days).
func NewLogger(cfg *config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	if cfg.LogFile != "" {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
	return zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller())
}

// Core is the concrete SDK implementation.
type Core struct {
	*Manager

	conf     *config.Config
	ledger   blockchain.Ledger
	endpoint storage.Endpoint
	reader   *storage.Reader
	closers  []func()
}

// NewSDK validates cfg, connects to the ledger and builds the SDK. A missing
// private key yields a read-only SDK whose mutating calls fail with
// ErrNoSigner.
func NewSDK(cfg *config.Config) (ShdwSDK, error) {
	if err := cfg.Validate(); err != nil {
		zap.L().Error("Invalid config", zap.Error(err))
		return nil, err
	}
	if cfg.Debug || cfg.LogFile != "" {
		zap.ReplaceGlobals(NewLogger(cfg))
	}

	core := &Core{conf: cfg}
	ledger, err := core.dialLedger()
	if err != nil {
		zap.L().Error("Init ledger client failed", zap.Error(err))
		return nil, err
	}

	var signer blockchain.Signer
	if cfg.HasPrivateKey() {
		address, prvKey, err := blockchain.ParsePrivateKeyECDSA(cfg.PrivateKey)
		if err != nil {
			core.Close()
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		signer = blockchain.NewKeySigner(prvKey)
		zap.L().Debug("signer address", zap.String("addr", address.Hex()))
	} else {
		zap.L().Warn("some methods disabled: no private key configured")
	}

	var ipfsAPI *rpc.HttpApi
	if cfg.IpfsURL != "" {
		if ipfsAPI, err = storage.NewIPFSClient(cfg.IpfsURL, cfg.Timeouts.Upload); err != nil {
			core.Close()
			return nil, err
		}
	}
	httpEndpoint := storage.NewHTTPEndpoint(cfg.UploadURL, cfg.Timeouts.Upload)
	var usage storage.UsageReporter = httpEndpoint
	core.endpoint = httpEndpoint
	if cfg.Upload.Target == config.TargetIPFS {
		core.endpoint = storage.NewIPFSEndpoint(ipfsAPI)
		usage = nil
	}
	core.reader = storage.NewReader(ipfsAPI, cfg.GatewayURL, cfg.Timeouts.Read)

	deps, err := wire(cfg, ledger, core.endpoint, signer)
	if err != nil {
		core.Close()
		return nil, err
	}
	deps.Usage = usage
	core.Manager = NewManager(deps)
	return core, nil
}

// wire builds the manager dependencies shared by NewSDK and tests.
func wire(cfg *config.Config, ledger blockchain.Ledger, endpoint storage.Endpoint, signer blockchain.Signer) (ManagerConfig, error) {
	chainID, ok := new(big.Int).SetString(cfg.Network.ChainID, 10)
	if !ok {
		return ManagerConfig{}, fmt.Errorf("invalid chain id %q", cfg.Network.ChainID)
	}
	submitter := blockchain.NewSubmitter(ledger, blockchain.SubmitterOptions{
		ChainID:     chainID,
		MaxAttempts: cfg.Confirm.MaxAttempts,
		Backoff:     blockchain.ExponentialBackoff(cfg.Confirm.InitialInterval, cfg.Confirm.MaxInterval),
	})

	deps := ManagerConfig{
		Submitter:   submitter,
		Builder:     instruction.NewBuilder(cfg.Program(), common.Address{}),
		ReceiptWait: cfg.Timeouts.ReceiptWait,
		ChainRead:   cfg.Timeouts.ChainRead,
	}
	if signer == nil {
		return deps, nil
	}
	maxFile, err := cfg.Upload.MaxFileSizeBytes()
	if err != nil {
		return ManagerConfig{}, err
	}
	deps.Signer = signer
	deps.Uploads = upload.New(endpoint, signer, upload.Options{
		Concurrency: cfg.Upload.Concurrency,
		PerAccount:  cfg.Upload.PerAccount,
		MaxAttempts: cfg.Upload.MaxAttempts,
		RateLimit:   rate.Limit(cfg.Upload.RateLimit),
		Burst:       cfg.Upload.Burst,
		MaxFileSize: maxFile,
	})
	return deps, nil
}

func (c *Core) dialLedger() (blockchain.Ledger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.conf.Timeouts.Dial)
	defer cancel()

	if c.conf.LedgerGRPCAddr != "" {
		l, err := blockchain.DialGRPC(c.conf.LedgerGRPCAddr)
		if err != nil {
			return nil, err
		}
		c.ledger = l
		c.closers = append(c.closers, func() {
			if err := l.Close(); err != nil {
				zap.L().Debug("Failed to close ledger connection", zap.Error(err))
			}
		})
		return l, nil
	}

	l, err := blockchain.DialRPC(ctx, c.conf.RPCAddr)
	if err != nil {
		return nil, err
	}
	c.ledger = l
	c.closers = append(c.closers, l.Close)
	if id, err := l.ChainID(ctx); err == nil && id.String() != c.conf.Network.ChainID {
		zap.L().Warn("Ledger chain id differs from configured network",
			zap.String("ledger", id.String()),
			zap.String("configured", c.conf.Network.ChainID))
	}
	return l, nil
}

// ListObjects returns the file names stored in addr. Only the HTTP upload
// service can list objects.
func (c *Core) ListObjects(ctx context.Context, addr common.Address) ([]string, error) {
	e, ok := c.endpoint.(*storage.HTTPEndpoint)
	if !ok {
		return nil, fmt.Errorf("%w: listing requires the http upload target", storage.ErrEndpointRejected)
	}
	return e.ListObjects(ctx, addr)
}

// ReadFile fetches stored content by locator.
func (c *Core) ReadFile(ctx context.Context, locator string) ([]byte, error) {
	return c.reader.ReadFile(ctx, locator)
}

// Healthcheck returns probes for the configured ledger and endpoint.
func (c *Core) Healthcheck() Healthcheck {
	return newHealthcheckClient(c.ledger, c.endpoint, c.conf)
}

// Close shuts down underlying network clients.
func (c *Core) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
	c.closers = nil
}
