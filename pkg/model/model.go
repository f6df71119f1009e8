// Package model defines the values exchanged between the SDK and its callers:
// files to upload, per-file upload results and their classifications, and
// human-readable byte sizes.
package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// FileSizeLimit is the largest payload the upload endpoint accepts.
const FileSizeLimit int64 = 1 << 30

// ShadowFile is one file of an upload batch. Path or Data supplies the
// bytes; nil Data without a Path is an empty file.
type ShadowFile struct {
	// Name must be unique within the target storage account.
	Name string
	Path string
	Data []byte
	// ContentType is optional; it is detected when empty.
	ContentType string
}

// FileFromPath returns a ShadowFile reading path, named after its base name.
func FileFromPath(path string) ShadowFile {
	return ShadowFile{Name: filepath.Base(path), Path: path}
}

// FileFromBytes returns an in-memory ShadowFile.
func FileFromBytes(name string, data []byte) ShadowFile {
	return ShadowFile{Name: name, Data: data}
}

// Size returns the payload size in bytes.
func (f ShadowFile) Size() (int64, error) {
	if f.Path == "" {
		return int64(len(f.Data)), nil
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", f.Path)
	}
	return info.Size(), nil
}

// Open returns a reader over the payload.
func (f ShadowFile) Open() (io.ReadCloser, error) {
	if f.Path == "" {
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	}
	return os.Open(f.Path)
}

// Bytes reads the whole payload.
func (f ShadowFile) Bytes() ([]byte, error) {
	if f.Path == "" {
		return f.Data, nil
	}
	return os.ReadFile(f.Path)
}

// DetectContentType returns ContentType, or a type guessed from the name
// extension and then from the first bytes of the payload.
func (f ShadowFile) DetectContentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(f.Name)); ct != "" {
		return ct
	}
	head, err := f.Bytes()
	if err != nil || len(head) == 0 {
		return "application/octet-stream"
	}
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}

// ErrorKind classifies the outcome of one file upload.
type ErrorKind int

const (
	Success ErrorKind = iota
	PayloadTooLarge
	EndpointRejected
	NetworkError
	SignatureRequired
	SigningUnsupported
	Cancelled
	// InvalidFile means the payload could not be read locally.
	InvalidFile
)

func (k ErrorKind) String() string {
	switch k {
	case Success:
		return "success"
	case PayloadTooLarge:
		return "payload_too_large"
	case EndpointRejected:
		return "endpoint_rejected"
	case NetworkError:
		return "network_error"
	case SignatureRequired:
		return "signature_required"
	case SigningUnsupported:
		return "signing_unsupported"
	case Cancelled:
		return "cancelled"
	case InvalidFile:
		return "invalid_file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	return k == NetworkError || k == SignatureRequired
}

// UploadResult is the outcome of one file. Batches return results in input
// order.
type UploadResult struct {
	Name string
	// Location is the content locator returned by the endpoint on success.
	Location string
	Kind     ErrorKind
	Err      error
	Size     int64
	Attempts int
}

// OK reports whether the file was stored.
func (r UploadResult) OK() bool { return r.Kind == Success }

// FailedResults returns the failed entries of results.
func FailedResults(results []UploadResult) []UploadResult {
	var out []UploadResult
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks the file carries a name and at most one byte source. A
// file with neither is an empty payload.
func (f ShadowFile) Validate() error {
	if f.Name == "" {
		return errors.New("file name is empty")
	}
	if f.Path != "" && f.Data != nil {
		return fmt.Errorf("%s: both path and data set", f.Name)
	}
	return nil
}
