package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shamank/shdw-sdk-go/pkg/model"
)

func TestFormatHash_SanitizesPrefixes(t *testing.T) {
	input := "ipfs://Qm-AbC=123!?#"
	if got := formatHash(input); got != "QmAbC=123" {
		t.Fatalf("formatHash returned %q, want %q", got, "QmAbC=123")
	}
}

func TestRemoveSpecialCharacters(t *testing.T) {
	input := "Qm-._$Hello=World"
	if got := removeSpecialCharacters(input); got != "QmHello=World" {
		t.Fatalf("removeSpecialCharacters returned %q, want %q", got, "QmHello=World")
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
		kind model.ErrorKind
	}{
		{http.StatusUnauthorized, ErrSignatureRequired, model.SignatureRequired},
		{http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, model.PayloadTooLarge},
		{http.StatusBadRequest, ErrEndpointRejected, model.EndpointRejected},
		{http.StatusConflict, ErrEndpointRejected, model.EndpointRejected},
		{http.StatusInternalServerError, ErrNetwork, model.NetworkError},
		{http.StatusBadGateway, ErrNetwork, model.NetworkError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := statusError(tt.code, "body")
			if !errors.Is(err, tt.want) {
				t.Fatalf("statusError(%d) = %v, want %v", tt.code, err, tt.want)
			}
			if got := Classify(err); got != tt.kind {
				t.Fatalf("Classify = %s, want %s", got, tt.kind)
			}
		})
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if Classify(context.Canceled) != model.Cancelled {
		t.Fatal("context cancellation must classify as cancelled")
	}
	if Classify(nil) != model.Success {
		t.Fatal("nil error is success")
	}
	if Classify(errors.New("dial tcp: refused")) != model.NetworkError {
		t.Fatal("unknown errors are network errors")
	}
}

type fetcherFunc func(context.Context, string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

func TestReaderRouting(t *testing.T) {
	var gatewayURL, ipfsURL string
	r := &Reader{
		GatewayURL: "https://gw/ipfs/",
		gateway: fetcherFunc(func(_ context.Context, url string) ([]byte, error) {
			gatewayURL = url
			return []byte("gw"), nil
		}),
		ipfs: fetcherFunc(func(_ context.Context, loc string) ([]byte, error) {
			ipfsURL = loc
			return []byte("ipfs"), nil
		}),
	}
	ctx := context.Background()

	if data, err := r.ReadFile(ctx, "ipfs://QmHash"); err != nil || string(data) != "ipfs" || ipfsURL != "ipfs://QmHash" {
		t.Fatalf("ipfs routing: %q, %v, %q", data, err, ipfsURL)
	}
	if data, err := r.ReadFile(ctx, "https://cdn/file.txt"); err != nil || string(data) != "gw" || gatewayURL != "https://cdn/file.txt" {
		t.Fatalf("url routing: %q, %v, %q", data, err, gatewayURL)
	}
	if _, err := r.ReadFile(ctx, "NotACid"); err != nil || gatewayURL != "https://gw/ipfs/NotACid" {
		t.Fatalf("bare id routing: %v, %q", err, gatewayURL)
	}
}

func TestReaderVerifiesRawCID(t *testing.T) {
	c, err := ComputeCID([]byte("expected"))
	if err != nil {
		t.Fatalf("ComputeCID: %v", err)
	}
	r := &Reader{
		GatewayURL: "https://gw/ipfs/",
		gateway: fetcherFunc(func(context.Context, string) ([]byte, error) {
			return []byte("tampered"), nil
		}),
	}
	if _, err := r.ReadFile(context.Background(), c.String()); err == nil {
		t.Fatal("expected verification failure for tampered content")
	}
}
