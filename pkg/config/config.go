// Package config defines the runtime configuration for the SDK: ledger
// network and RPC endpoints, the storage program address, storage endpoint
// URLs, logging, confirmation polling, upload limits and timeouts. It also
// provides loading, validation and defaulting helpers.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/shamank/shdw-sdk-go/pkg/model"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "SHDW_"

// DefaultProgramAddress is the storage program on the public networks.
const DefaultProgramAddress = "0x2e1a6a7e3c9b1f0d4c8e5b7a9d3f6c2e8b4a1d70"

// Upload targets.
const (
	TargetHTTP = "http"
	TargetIPFS = "ipfs"
)

// Config holds all SDK settings required to initialize the ledger and
// storage clients. Use Validate to fill implicit defaults and to check for
// required fields.
type Config struct {
	// Network selects the target ledger (chain ID and human-readable name).
	Network Network `json:"network" yaml:"network" toml:"network"`
	// RPCAddr is the ledger JSON-RPC endpoint URL. Either RPCAddr or
	// LedgerGRPCAddr is required.
	RPCAddr string `json:"rpc_addr" yaml:"rpc_addr" toml:"rpc_addr" env:"RPC_ADDR"`
	// LedgerGRPCAddr is the host:port of a ledger gRPC gateway. It takes
	// precedence over RPCAddr when both are set.
	LedgerGRPCAddr string `json:"ledger_grpc_addr" yaml:"ledger_grpc_addr" toml:"ledger_grpc_addr" env:"LEDGER_GRPC_ADDR"`
	// PrivateKey is the hex-encoded ECDSA key of the account owner. Without it
	// the SDK is read-only.
	PrivateKey string `json:"private_key" yaml:"private_key" toml:"private_key" env:"PRIVATE_KEY"`
	// ProgramAddress is the storage program. Default: DefaultProgramAddress.
	ProgramAddress string `json:"program_address" yaml:"program_address" toml:"program_address" env:"PROGRAM_ADDRESS"`
	// UploadURL is the upload service base URL.
	// Default: https://shadow-storage.genesysgo.net
	UploadURL string `json:"upload_url" yaml:"upload_url" toml:"upload_url" env:"UPLOAD_URL"`
	// IpfsURL is the Kubo HTTP API used as upload target when Upload.Target is
	// "ipfs", and to read ipfs:// locators.
	IpfsURL string `json:"ipfs_url" yaml:"ipfs_url" toml:"ipfs_url" env:"IPFS_URL"`
	// GatewayURL resolves bare content ids. Default: https://shdw-drive.genesysgo.net/
	GatewayURL string `json:"gateway_url" yaml:"gateway_url" toml:"gateway_url" env:"GATEWAY_URL"`
	// Debug enables verbose logging.
	Debug bool `json:"debug" yaml:"debug" toml:"debug" env:"DEBUG"`
	// LogFile, when set, receives rotated log output instead of stderr.
	LogFile string `json:"log_file" yaml:"log_file" toml:"log_file" env:"LOG_FILE"`
	// Timeouts configures per-operation timeouts. See Timeouts.WithDefaults.
	Timeouts Timeouts `json:"timeouts" yaml:"timeouts" toml:"timeouts" envPrefix:"TIMEOUT_"`
	// Confirm tunes transaction confirmation polling.
	Confirm Confirm `json:"confirm" yaml:"confirm" toml:"confirm" envPrefix:"CONFIRM_"`
	// Upload tunes the upload worker pool and retries.
	Upload Upload `json:"upload" yaml:"upload" toml:"upload" envPrefix:"UPLOAD_"`
}

// Network describes a ledger network. ChainID is bound into every signed
// transaction; Name is informational.
type Network struct {
	ChainID string `json:"chain_id" yaml:"chain_id" toml:"chain_id" env:"CHAIN_ID"`
	Name    string `json:"network_name" yaml:"network_name" toml:"network_name" env:"NETWORK"`
}

// Mainnet is the production network.
var Mainnet = Network{
	ChainID: "101",
	Name:    "mainnet-beta",
}

// Devnet is the public development network.
var Devnet = Network{
	ChainID: "103",
	Name:    "devnet",
}

// Timeouts controls SDK operation deadlines.
// Zero values will be replaced by defaults in WithDefaults.
type Timeouts struct {
	// Dial bounds connecting to the ledger.
	Dial time.Duration `json:"dial" yaml:"dial" toml:"dial" env:"DIAL"`
	// ChainRead bounds account and usage reads.
	ChainRead   time.Duration `json:"chain_read" yaml:"chain_read" toml:"chain_read" env:"CHAIN_READ"`
	ChainSubmit time.Duration `json:"chain_submit" yaml:"chain_submit" toml:"chain_submit" env:"CHAIN_SUBMIT"`
	// ReceiptWait bounds one submit plus confirmation cycle.
	ReceiptWait time.Duration `json:"receipt_wait" yaml:"receipt_wait" toml:"receipt_wait" env:"RECEIPT_WAIT"`
	// Upload bounds a single upload request.
	Upload time.Duration `json:"upload" yaml:"upload" toml:"upload" env:"UPLOAD"`
	Read   time.Duration `json:"read" yaml:"read" toml:"read" env:"READ"`
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Dial:        5s
//	ChainRead:   12s
//	ChainSubmit: 25s
//	ReceiptWait: 90s
//	Upload:      5m
//	Read:        60s
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Dial == 0 {
		tt.Dial = 5 * time.Second
	}
	if tt.ChainRead == 0 {
		tt.ChainRead = 12 * time.Second
	}
	if tt.ChainSubmit == 0 {
		tt.ChainSubmit = 25 * time.Second
	}
	if tt.ReceiptWait == 0 {
		tt.ReceiptWait = 90 * time.Second
	}
	if tt.Upload == 0 {
		tt.Upload = 5 * time.Minute
	}
	if tt.Read == 0 {
		tt.Read = 60 * time.Second
	}
	return tt
}

// Confirm tunes confirmation polling. The wait ends as TimedOut after
// MaxAttempts status reads.
type Confirm struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" toml:"initial_interval" env:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval" toml:"max_interval" env:"MAX_INTERVAL"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults:
// 30 attempts spaced 500ms growing to 5s.
func (c Confirm) WithDefaults() Confirm {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 30
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	return c
}

// Upload tunes the upload orchestrator.
type Upload struct {
	// Target is "http" (default) or "ipfs".
	Target      string `json:"target" yaml:"target" toml:"target" env:"TARGET"`
	Concurrency int    `json:"concurrency" yaml:"concurrency" toml:"concurrency" env:"CONCURRENCY"`
	PerAccount  int    `json:"per_account" yaml:"per_account" toml:"per_account" env:"PER_ACCOUNT"`
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts" env:"MAX_ATTEMPTS"`
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `json:"burst" yaml:"burst" toml:"burst" env:"BURST"`
	// MaxFileSize is a human-readable size such as "1GiB" or "500MB".
	MaxFileSize string `json:"max_file_size" yaml:"max_file_size" toml:"max_file_size" env:"MAX_FILE_SIZE"`
}

// WithDefaults returns a copy of u with zero values replaced by defaults:
// http target, 4 workers per call, 8 per account, 3 attempts, no rate
// limit, 1GiB per file.
func (u Upload) WithDefaults() Upload {
	if u.Target == "" {
		u.Target = TargetHTTP
	}
	if u.Concurrency <= 0 {
		u.Concurrency = 4
	}
	if u.PerAccount <= 0 {
		u.PerAccount = 8
	}
	if u.MaxAttempts <= 0 {
		u.MaxAttempts = 3
	}
	if u.Burst <= 0 {
		u.Burst = 1
	}
	if u.MaxFileSize == "" {
		u.MaxFileSize = "1GiB"
	}
	return u
}

// MaxFileSizeBytes parses MaxFileSize.
func (u Upload) MaxFileSizeBytes() (int64, error) {
	if u.MaxFileSize == "" {
		return model.FileSizeLimit, nil
	}
	n, err := model.ParseSize(u.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("upload max file size: %w", err)
	}
	if n == 0 || n > uint64(model.FileSizeLimit) {
		return 0, fmt.Errorf("upload max file size must be between 1B and %s", model.FormatSize(uint64(model.FileSizeLimit)))
	}
	return int64(n), nil
}

// Validate normalizes the configuration by applying implicit defaults for
// URLs, Network (defaults to Mainnet), ProgramAddress and the nested
// sections, and verifies that a ledger address is provided.
func (c *Config) Validate() error {
	if c.UploadURL == "" {
		c.UploadURL = "https://shadow-storage.genesysgo.net"
	}

	if c.GatewayURL == "" {
		c.GatewayURL = "https://shdw-drive.genesysgo.net/"
	}

	if c.Network.ChainID == "" {
		c.Network = Mainnet
	}

	if c.ProgramAddress == "" {
		c.ProgramAddress = DefaultProgramAddress
	}

	c.Timeouts = c.Timeouts.WithDefaults()
	c.Confirm = c.Confirm.WithDefaults()
	c.Upload = c.Upload.WithDefaults()

	if c.RPCAddr == "" && c.LedgerGRPCAddr == "" {
		return errors.New("RPC address is required")
	}
	if !common.IsHexAddress(c.ProgramAddress) {
		return fmt.Errorf("invalid program address %q", c.ProgramAddress)
	}
	switch c.Upload.Target {
	case TargetHTTP:
	case TargetIPFS:
		if c.IpfsURL == "" {
			return errors.New("ipfs upload target requires ipfs_url")
		}
	default:
		return fmt.Errorf("unknown upload target %q", c.Upload.Target)
	}
	if _, err := c.Upload.MaxFileSizeBytes(); err != nil {
		return err
	}
	return nil
}

// HasPrivateKey reports whether a signing key is configured.
func (c *Config) HasPrivateKey() bool {
	return strings.TrimSpace(c.PrivateKey) != ""
}

// Program returns ProgramAddress as an address.
func (c *Config) Program() common.Address {
	return common.HexToAddress(c.ProgramAddress)
}

// Load reads a YAML, TOML or JSON file chosen by extension, overlays SHDW_*
// environment variables and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode toml config: %w", err)
		}
		return nil
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if ext == ".json" {
			if err := json.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("decode json config: %w", err)
			}
			return nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// ApplyEnv overlays SHDW_* environment variables onto cfg. Unset variables
// leave fields untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
