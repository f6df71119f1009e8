package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shamank/shdw-sdk-go/pkg/model"
)

const (
	// IpfsPrefix is the URI scheme prefix recognized for IPFS content.
	IpfsPrefix = "ipfs://"
)

var (
	// ErrEndpointRejected is a final refusal by the endpoint (4xx other than
	// 401 and 413, or a 2xx carrying upload errors).
	ErrEndpointRejected = errors.New("endpoint rejected request")
	// ErrNetwork covers transport failures and 5xx responses.
	ErrNetwork = errors.New("endpoint unreachable")
	// ErrPayloadTooLarge is returned for 413 responses.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrSignatureRequired is returned for 401 responses.
	ErrSignatureRequired = errors.New("signature required")
)

// UploadRequest is one authorized file upload.
type UploadRequest struct {
	StorageAccount common.Address
	Signer         common.Address
	// Message is the exact text that Signature covers.
	Message   string
	Signature []byte
	File      model.ShadowFile
	// CID is the locally computed content id, sent for server-side checks.
	CID string
}

// UploadError is a per-file error reported inside a 2xx response.
type UploadError struct {
	File           string `json:"file"`
	StorageAccount string `json:"storage_account"`
	Error          string `json:"error"`
}

// UploadResponse is the JSON body of a successful upload.
type UploadResponse struct {
	FinalizedLocations []string      `json:"finalized_locations"`
	Message            string        `json:"message"`
	UploadErrors       []UploadError `json:"upload_errors"`
}

// Location returns the first finalized locator.
func (r *UploadResponse) Location() string {
	if r == nil || len(r.FinalizedLocations) == 0 {
		return ""
	}
	return r.FinalizedLocations[0]
}

// Endpoint accepts file uploads. Errors wrap one of the package sentinels.
type Endpoint interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
}

// UsageReporter reports server-verified usage of a storage account.
type UsageReporter interface {
	StorageUsage(ctx context.Context, account common.Address) (uint64, error)
}

// Classify maps an endpoint error to a per-file outcome.
func Classify(err error) model.ErrorKind {
	switch {
	case err == nil:
		return model.Success
	case errors.Is(err, ErrPayloadTooLarge):
		return model.PayloadTooLarge
	case errors.Is(err, ErrSignatureRequired):
		return model.SignatureRequired
	case errors.Is(err, ErrEndpointRejected):
		return model.EndpointRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.Cancelled
	default:
		return model.NetworkError
	}
}

// statusError maps a non-2xx HTTP status to a sentinel.
func statusError(code int, body string) error {
	body = strings.TrimSpace(body)
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrSignatureRequired, body)
	case code == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s", ErrPayloadTooLarge, body)
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: status %d: %s", ErrEndpointRejected, code, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrNetwork, code, body)
	}
}

// formatHash removes the ipfs:// prefix and any non-alphanumeric characters
// (except '=') to produce a clean CID string.
func formatHash(hash string) string {
	hash = strings.Replace(hash, IpfsPrefix, "", -1)
	return removeSpecialCharacters(hash)
}

var specialCharacters = regexp.MustCompile("[^a-zA-Z0-9=]")

// removeSpecialCharacters strips all characters except ASCII letters, digits,
// and '='.
func removeSpecialCharacters(pString string) string {
	return specialCharacters.ReplaceAllString(pString, "")
}
