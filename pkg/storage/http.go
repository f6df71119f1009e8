package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// HTTPEndpoint talks to the storage network's upload service.
type HTTPEndpoint struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPEndpoint returns an endpoint rooted at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewHTTPEndpoint(baseURL string, timeout time.Duration) *HTTPEndpoint {
	return &HTTPEndpoint{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Upload posts one file as multipart/form-data.
func (e *HTTPEndpoint) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	body, contentType, err := multipartBody(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/upload", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointRejected, err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	var out UploadResponse
	if err := e.do(httpReq, &out); err != nil {
		return nil, err
	}
	if len(out.UploadErrors) > 0 {
		return &out, fmt.Errorf("%w: %s", ErrEndpointRejected, out.UploadErrors[0].Error)
	}
	if len(out.FinalizedLocations) == 0 {
		return &out, fmt.Errorf("%w: no finalized location for %s", ErrEndpointRejected, req.File.Name)
	}
	zap.L().Debug("File uploaded", zap.String("file", req.File.Name), zap.String("location", out.Location()))
	return &out, nil
}

func multipartBody(req UploadRequest) (io.Reader, string, error) {
	payload, err := req.File.Bytes()
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.File.Name)))
	h.Set("Content-Type", req.File.DetectContentType())
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"message", req.Message},
		{"signature", hexutil.Encode(req.Signature)},
		{"signer", req.Signer.Hex()},
		{"storage_account", req.StorageAccount.Hex()},
		{"fileNames", req.File.Name},
		{"cid", req.CID},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// StorageAccountInfo is the endpoint's view of a storage account.
type StorageAccountInfo struct {
	StorageAccount string `json:"storage_account"`
	ReservedBytes  uint64 `json:"reserved_bytes"`
	CurrentUsage   uint64 `json:"current_usage"`
	Immutable      bool   `json:"immutable"`
	Version        string `json:"version"`
}

// AccountInfo returns the endpoint's record of account.
func (e *HTTPEndpoint) AccountInfo(ctx context.Context, account common.Address) (*StorageAccountInfo, error) {
	var out StorageAccountInfo
	if err := e.postJSON(ctx, "/storage-account-info", map[string]string{"storage_account": account.Hex()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StorageUsage implements UsageReporter.
func (e *HTTPEndpoint) StorageUsage(ctx context.Context, account common.Address) (uint64, error) {
	info, err := e.AccountInfo(ctx, account)
	if err != nil {
		return 0, err
	}
	return info.CurrentUsage, nil
}

// ListObjects returns the file names stored in account.
func (e *HTTPEndpoint) ListObjects(ctx context.Context, account common.Address) ([]string, error) {
	var out struct {
		Keys []string `json:"keys"`
	}
	if err := e.postJSON(ctx, "/list-objects", map[string]string{"storageAccount": account.Hex()}, &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// Health checks GET /status.
func (e *HTTPEndpoint) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"/status", nil)
	if err != nil {
		return err
	}
	return e.do(req, nil)
}

func (e *HTTPEndpoint) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, out)
}

func (e *HTTPEndpoint) do(req *http.Request, out interface{}) error {
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		zap.L().Debug("Endpoint request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrNetwork, req.URL.Path, err)
	}
	return nil
}
