// Package config provides configuration management for the storage SDK.
//
// This package defines the Config structure that controls all SDK behavior
// including the ledger network and endpoints, the storage program, the upload
// service, logging, confirmation polling and timeouts.
//
// # Basic Configuration
//
// The minimum required configuration needs a ledger endpoint:
//
//	cfg := &config.Config{
//		RPCAddr:    "https://ledger.example/rpc",
//		PrivateKey: os.Getenv("SHDW_PRIVATE_KEY"),
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// LedgerGRPCAddr may be used instead of RPCAddr to reach a gRPC ledger
// gateway.
//
// # Networks
//
//	config.Mainnet - production (ChainID: 101)
//	config.Devnet  - development (ChainID: 103)
//
// The chain id is bound into every signed transaction.
//
// # Files and Environment
//
// Load reads YAML (.yaml, .yml), TOML (.toml) or JSON (.json):
//
//	rpc_addr: https://ledger.example/rpc
//	upload_url: https://shadow-storage.genesysgo.net
//	timeouts:
//	  receipt_wait: 2m
//	confirm:
//	  max_attempts: 40
//	upload:
//	  concurrency: 8
//	  max_file_size: 500MB
//
// Environment variables prefixed with SHDW_ override file values, e.g.
// SHDW_RPC_ADDR, SHDW_PRIVATE_KEY, SHDW_CHAIN_ID, SHDW_UPLOAD_CONCURRENCY,
// SHDW_TIMEOUT_RECEIPT_WAIT or SHDW_CONFIRM_MAX_ATTEMPTS.
//
// # Defaults
//
// Validate fills:
//
//	Network:        Mainnet
//	ProgramAddress: DefaultProgramAddress
//	UploadURL:      https://shadow-storage.genesysgo.net
//	GatewayURL:     https://shdw-drive.genesysgo.net/
//	Upload:         http target, 4 per call, 8 per account, 3 attempts, 1GiB files
//	Confirm:        30 status reads, 500ms growing to 5s
//
// See Timeouts.WithDefaults for timeout values.
//
// # Security
//
// Never commit private keys. Prefer SHDW_PRIVATE_KEY or a secrets manager.
package config
