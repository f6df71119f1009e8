package config

import (
	"strings"
	"testing"
	"time"
)

// TestConfigValidate_AppliesDefaults verifies that Validate applies default
// URLs, network, program address and nested sections.
func TestConfigValidate_AppliesDefaults(t *testing.T) {
	cfg := &Config{
		RPCAddr: "https://rpc.example",
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if cfg.UploadURL != "https://shadow-storage.genesysgo.net" {
		t.Fatalf("unexpected UploadURL: %s", cfg.UploadURL)
	}
	if cfg.GatewayURL != "https://shdw-drive.genesysgo.net/" {
		t.Fatalf("unexpected GatewayURL: %s", cfg.GatewayURL)
	}
	if cfg.Network != Mainnet {
		t.Fatalf("expected default Mainnet network, got %#v", cfg.Network)
	}
	if cfg.ProgramAddress != DefaultProgramAddress {
		t.Fatalf("unexpected ProgramAddress: %s", cfg.ProgramAddress)
	}
	if cfg.Upload.Target != TargetHTTP || cfg.Upload.Concurrency != 4 || cfg.Upload.PerAccount != 8 {
		t.Fatalf("upload defaults not applied: %#v", cfg.Upload)
	}
	if cfg.Confirm.MaxAttempts != 30 {
		t.Fatalf("confirm defaults not applied: %#v", cfg.Confirm)
	}
	if cfg.Timeouts.ReceiptWait != 90*time.Second {
		t.Fatalf("timeout defaults not applied: %#v", cfg.Timeouts)
	}
}

// TestConfigValidate_RequiresLedger verifies that Validate returns an error
// when neither ledger address is provided.
func TestConfigValidate_RequiresLedger(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing RPC address")
	}
	if err.Error() != "RPC address is required" {
		t.Fatalf("unexpected error %q", err)
	}

	cfg = &Config{LedgerGRPCAddr: "localhost:9090"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("gRPC ledger alone should be enough: %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "bad program address",
			cfg:  Config{RPCAddr: "http://x", ProgramAddress: "not-an-address"},
			want: "invalid program address",
		},
		{
			name: "ipfs target without url",
			cfg:  Config{RPCAddr: "http://x", Upload: Upload{Target: TargetIPFS}},
			want: "requires ipfs_url",
		},
		{
			name: "unknown target",
			cfg:  Config{RPCAddr: "http://x", Upload: Upload{Target: "ftp"}},
			want: "unknown upload target",
		},
		{
			name: "bad file size",
			cfg:  Config{RPCAddr: "http://x", Upload: Upload{MaxFileSize: "12 parsecs"}},
			want: "max file size",
		},
		{
			name: "file size above limit",
			cfg:  Config{RPCAddr: "http://x", Upload: Upload{MaxFileSize: "2GiB"}},
			want: "max file size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

// TestTimeoutsWithDefaults verifies that WithDefaults preserves explicitly set
// timeout values and fills in defaults for zero values.
func TestTimeoutsWithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		timeouts Timeouts
		want     Timeouts
	}{
		{
			name:     "empty timeouts",
			timeouts: Timeouts{},
			want: Timeouts{
				Dial:        5 * time.Second,
				ChainRead:   12 * time.Second,
				ChainSubmit: 25 * time.Second,
				ReceiptWait: 90 * time.Second,
				Upload:      5 * time.Minute,
				Read:        60 * time.Second,
			},
		},
		{
			name: "partial timeouts",
			timeouts: Timeouts{
				Dial:   time.Second,
				Upload: 42 * time.Second,
			},
			want: Timeouts{
				Dial:        time.Second,
				ChainRead:   12 * time.Second,
				ChainSubmit: 25 * time.Second,
				ReceiptWait: 90 * time.Second,
				Upload:      42 * time.Second,
				Read:        60 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.timeouts.WithDefaults(); got != tt.want {
				t.Fatalf("WithDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfirmWithDefaults(t *testing.T) {
	got := Confirm{InitialInterval: 10 * time.Second}.WithDefaults()
	if got.MaxAttempts != 30 {
		t.Fatalf("MaxAttempts = %d", got.MaxAttempts)
	}
	if got.MaxInterval != 10*time.Second {
		t.Fatalf("MaxInterval must not fall below InitialInterval, got %v", got.MaxInterval)
	}
}

func TestUploadMaxFileSizeBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 1 << 30},
		{"1GiB", 1 << 30},
		{"500MB", 500_000_000},
		{"10 KiB", 10 << 10},
	}
	for _, tt := range tests {
		got, err := Upload{MaxFileSize: tt.in}.MaxFileSizeBytes()
		if err != nil {
			t.Fatalf("MaxFileSizeBytes(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("MaxFileSizeBytes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNetwork_Presets(t *testing.T) {
	if Mainnet.ChainID != "101" || Mainnet.Name != "mainnet-beta" {
		t.Fatalf("unexpected Mainnet preset %#v", Mainnet)
	}
	if Devnet.ChainID != "103" || Devnet.Name != "devnet" {
		t.Fatalf("unexpected Devnet preset %#v", Devnet)
	}
}

func TestConfig_HasPrivateKey(t *testing.T) {
	if (&Config{PrivateKey: "  "}).HasPrivateKey() {
		t.Fatal("blank key must not count")
	}
	if !(&Config{PrivateKey: "abc"}).HasPrivateKey() {
		t.Fatal("expected key")
	}
}
