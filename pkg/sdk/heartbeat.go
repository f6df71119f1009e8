package sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shamank/shdw-sdk-go/pkg/blockchain"
	"github.com/shamank/shdw-sdk-go/pkg/config"
	"github.com/shamank/shdw-sdk-go/pkg/storage"
)

// ErrHealthUnsupported is returned by probes the configured transport cannot
// answer.
var ErrHealthUnsupported = errors.New("health probe not supported by transport")

// Healthcheck probes the services the SDK depends on.
type Healthcheck interface {
	// Ledger reads a recent blockhash.
	Ledger() (common.Hash, error)
	// GRPC runs the standard gRPC health check against the ledger gateway.
	GRPC() (*grpc_health_v1.HealthCheckResponse, error)
	// Endpoint checks the upload service status.
	Endpoint() error
}

type healthcheckClient struct {
	ledger   blockchain.Ledger
	endpoint storage.Endpoint
	config   *config.Config
}

func newHealthcheckClient(ledger blockchain.Ledger, endpoint storage.Endpoint, cfg *config.Config) Healthcheck {
	return &healthcheckClient{
		ledger:   ledger,
		endpoint: endpoint,
		config:   cfg,
	}
}

func (hc *healthcheckClient) probeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), hc.config.Timeouts.ChainRead)
}

func (hc *healthcheckClient) Ledger() (common.Hash, error) {
	ctx, cancel := hc.probeContext()
	defer cancel()
	hash, err := hc.ledger.RecentBlockhash(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ledger heartbeat failed: %w", err)
	}
	if hc.config.Debug {
		zap.L().Debug("Ledger heartbeat", zap.String("blockhash", hash.Hex()))
	}
	return hash, nil
}

func (hc *healthcheckClient) GRPC() (*grpc_health_v1.HealthCheckResponse, error) {
	gw, ok := hc.ledger.(*blockchain.GRPCLedger)
	if !ok {
		return nil, ErrHealthUnsupported
	}
	ctx, cancel := hc.probeContext()
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(gw.Conn()).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return nil, fmt.Errorf("grpc heartbeat failed: %w", err)
	}
	if hc.config.Debug {
		zap.L().Debug("Gateway health", zap.String("status", resp.GetStatus().String()))
	}
	return resp, nil
}

func (hc *healthcheckClient) Endpoint() error {
	prober, ok := hc.endpoint.(interface{ Health(context.Context) error })
	if !ok {
		return ErrHealthUnsupported
	}
	ctx, cancel := hc.probeContext()
	defer cancel()
	if err := prober.Health(ctx); err != nil {
		return fmt.Errorf("upload service heartbeat failed: %w", err)
	}
	return nil
}
