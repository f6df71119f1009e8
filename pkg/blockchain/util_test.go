package blockchain

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestGetAddressFromPrivateKeyECDSA(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	addr := GetAddressFromPrivateKeyECDSA(priv)
	if addr == nil {
		t.Fatal("expected non-nil address")
	}
	want := crypto.PubkeyToAddress(priv.PublicKey)
	if *addr != want {
		t.Fatalf("unexpected address: got %s want %s", addr.Hex(), want.Hex())
	}

	if GetAddressFromPrivateKeyECDSA(nil) != nil {
		t.Fatal("expected nil for nil key")
	}
}

func TestParsePrivateKeyECDSA(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hexKey := hex.EncodeToString(crypto.FromECDSA(priv))

	addr, parsedKey, err := ParsePrivateKeyECDSA(hexKey)
	if err != nil {
		t.Fatalf("ParsePrivateKeyECDSA: %v", err)
	}
	if addr != crypto.PubkeyToAddress(priv.PublicKey) {
		t.Fatalf("unexpected address: %s", addr.Hex())
	}
	if parsedKey.D.Cmp(priv.D) != 0 {
		t.Fatal("parsed key mismatch")
	}

	if _, _, err := ParsePrivateKeyECDSA("zz"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestKeySignerRejectsNonDigest(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	s := NewKeySigner(priv)

	_, err := s.Sign([]byte("not a digest"))
	if !errors.Is(err, ErrSigningUnsupported) {
		t.Fatalf("expected ErrSigningUnsupported, got %v", err)
	}

	sig, err := s.Sign(crypto.Keccak256([]byte("payload")))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length %d", len(sig))
	}
}

func TestPersonalSignRecovers(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	s := NewKeySigner(priv)
	msg := []byte("Shadow Drive Signed Message:\nStorage Account: x")

	sig, err := PersonalSign(s, msg)
	if err != nil {
		t.Fatalf("PersonalSign: %v", err)
	}
	got, err := RecoverPersonal(msg, sig)
	if err != nil {
		t.Fatalf("RecoverPersonal: %v", err)
	}
	if got != s.Address() {
		t.Fatalf("recovered %s, want %s", got.Hex(), s.Address().Hex())
	}
	if other, _ := RecoverPersonal([]byte("tampered"), sig); other == s.Address() {
		t.Fatal("signature verified over a different message")
	}
}

func TestNewKeySignerNil(t *testing.T) {
	if NewKeySigner(nil) != nil {
		t.Fatal("expected nil signer for nil key")
	}
}
