package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/shamank/shdw-sdk-go/internal/metrics"
	"github.com/shamank/shdw-sdk-go/pkg/blockchain"
	"github.com/shamank/shdw-sdk-go/pkg/model"
	"github.com/shamank/shdw-sdk-go/pkg/storage"
)

var (
	// ErrDuplicateFileName is returned when two files of one batch share a
	// name. Nothing is sent.
	ErrDuplicateFileName = errors.New("duplicate file name in batch")
	// ErrInvalidFileName is carried by results of files without a usable name
	// or byte source.
	ErrInvalidFileName = errors.New("invalid file")
)

// SignedMessagePrefix opens every upload authorization message.
const SignedMessagePrefix = "Shadow Drive Signed Message:\n"

// Options tune an Orchestrator. Zero values take defaults.
type Options struct {
	// Concurrency bounds in-flight uploads of one call. Default 4.
	Concurrency int
	// PerAccount bounds in-flight uploads per storage account across calls.
	// Default 8.
	PerAccount int
	// MaxAttempts bounds attempts per file. Default 3.
	MaxAttempts int
	// Backoff spaces retries of one file. Default: exponential 250ms..4s.
	Backoff blockchain.BackoffFactory
	// RateLimit caps endpoint requests per second across all calls. Zero
	// disables the limit.
	RateLimit rate.Limit
	// Burst is the limiter burst. Default 1.
	Burst int
	// MaxFileSize rejects larger payloads locally. Default model.FileSizeLimit.
	MaxFileSize int64
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.PerAccount <= 0 {
		o.PerAccount = 8
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff == nil {
		o.Backoff = blockchain.ExponentialBackoff(250*time.Millisecond, 4*time.Second)
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = model.FileSizeLimit
	}
	return o
}

// Orchestrator uploads batches of files to one endpoint on behalf of one
// signer. It never touches ledger state. Safe for concurrent use.
type Orchestrator struct {
	endpoint storage.Endpoint
	signer   blockchain.Signer
	opts     Options
	limiter  *rate.Limiter

	mu       sync.Mutex
	accounts map[common.Address]*semaphore.Weighted
}

// New returns an Orchestrator sending to endpoint and signing with signer.
func New(endpoint storage.Endpoint, signer blockchain.Signer, opts Options) *Orchestrator {
	opts = opts.WithDefaults()
	o := &Orchestrator{
		endpoint: endpoint,
		signer:   signer,
		opts:     opts,
		accounts: make(map[common.Address]*semaphore.Weighted),
	}
	if opts.RateLimit > 0 {
		o.limiter = rate.NewLimiter(opts.RateLimit, opts.Burst)
	}
	return o
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options { return o.opts }

// CheckBatch reports every name used by more than one file of the batch.
// The errors wrap ErrDuplicateFileName. Other problems with a file are not
// batch errors; they come back in that file's result.
func CheckBatch(files []model.ShadowFile) error {
	var errs error
	seen := make(map[string]int, len(files))
	for _, f := range files {
		if f.Name == "" {
			continue
		}
		seen[f.Name]++
		if seen[f.Name] == 2 {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrDuplicateFileName, f.Name))
		}
	}
	return errs
}

// Upload sends files to account and returns one result per file, in input
// order. Batch validation failures return before any request is made.
//
// When ctx is cancelled, files that did not finish are reported as
// model.Cancelled and the partial results are returned along with ctx.Err().
func (o *Orchestrator) Upload(ctx context.Context, account common.Address, files []model.ShadowFile) ([]model.UploadResult, error) {
	if err := CheckBatch(files); err != nil {
		zap.L().Error("Upload batch rejected", zap.String("account", account.Hex()), zap.Error(err))
		return nil, err
	}

	results := make([]model.UploadResult, len(files))
	done := make([]bool, len(files))
	pool := semaphore.NewWeighted(int64(o.opts.Concurrency))

	for i := range files {
		if err := pool.Acquire(ctx, 1); err != nil {
			break
		}
		go func(i int) {
			defer pool.Release(1)
			results[i] = o.uploadFile(ctx, account, files[i])
			done[i] = true
		}(i)
	}
	// wait for every started worker
	_ = pool.Acquire(context.Background(), int64(o.opts.Concurrency))
	pool.Release(int64(o.opts.Concurrency))

	for i := range results {
		if !done[i] {
			results[i] = model.UploadResult{Name: files[i].Name, Kind: model.Cancelled, Err: ctx.Err()}
			metrics.Upload().ObserveFile(model.Cancelled.String(), 0, false)
		}
	}

	failed := len(model.FailedResults(results))
	zap.L().Debug("Upload batch finished",
		zap.String("account", account.Hex()),
		zap.Int("files", len(files)),
		zap.Int("failed", failed))

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (o *Orchestrator) uploadFile(ctx context.Context, account common.Address, file model.ShadowFile) (res model.UploadResult) {
	res.Name = file.Name
	defer func() {
		metrics.Upload().ObserveFile(res.Kind.String(), res.Size, res.OK())
	}()

	if err := file.Validate(); err != nil {
		res.Kind, res.Err = model.InvalidFile, fmt.Errorf("%w: %v", ErrInvalidFileName, err)
		return res
	}
	size, err := file.Size()
	if err != nil {
		res.Kind, res.Err = model.InvalidFile, err
		return res
	}
	res.Size = size
	if size > o.opts.MaxFileSize {
		res.Kind = model.PayloadTooLarge
		res.Err = fmt.Errorf("%w: %s is %s, limit %s", storage.ErrPayloadTooLarge,
			file.Name, model.FormatSize(uint64(size)), model.FormatSize(uint64(o.opts.MaxFileSize)))
		return res
	}

	sem := o.accountSemaphore(account)
	if err := sem.Acquire(ctx, 1); err != nil {
		res.Kind, res.Err = model.Cancelled, err
		return res
	}
	defer sem.Release(1)

	data, err := file.Bytes()
	if err != nil {
		res.Kind, res.Err = model.InvalidFile, err
		return res
	}
	file.Data, file.Path = data, ""
	id, err := storage.ComputeCID(data)
	if err != nil {
		res.Kind, res.Err = model.InvalidFile, err
		return res
	}

	policy := o.opts.Backoff()
	for {
		res.Attempts++
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				res.Kind, res.Err = model.Cancelled, err
				return res
			}
		}

		req, err := o.authorize(account, file)
		if err != nil {
			zap.L().Error("Failed to sign upload", zap.String("file", file.Name), zap.Error(err))
			res.Kind, res.Err = model.SigningUnsupported, err
			return res
		}
		req.CID = id.String()

		start := time.Now()
		resp, err := o.endpoint.Upload(ctx, req)
		kind := storage.Classify(err)
		metrics.Upload().ObserveAttempt(kind.String(), time.Since(start))

		if kind == model.Success {
			res.Kind, res.Err, res.Location = model.Success, nil, resp.Location()
			return res
		}
		res.Kind, res.Err = kind, err
		if ctx.Err() != nil {
			res.Kind, res.Err = model.Cancelled, ctx.Err()
			return res
		}
		if !kind.Retryable() || res.Attempts >= o.opts.MaxAttempts {
			zap.L().Warn("Upload failed",
				zap.String("file", file.Name),
				zap.String("kind", kind.String()),
				zap.Int("attempts", res.Attempts),
				zap.Error(err))
			return res
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return res
		}
		zap.L().Debug("Retrying upload", zap.String("file", file.Name), zap.Duration("wait", wait), zap.Error(err))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Kind, res.Err = model.Cancelled, ctx.Err()
			return res
		case <-timer.C:
		}
	}
}

// authorize builds a fresh authorization for one attempt.
func (o *Orchestrator) authorize(account common.Address, file model.ShadowFile) (storage.UploadRequest, error) {
	msg := AuthorizationMessage(account, file.Name, uuid.NewString())
	sig, err := blockchain.PersonalSign(o.signer, []byte(msg))
	if err != nil {
		if !errors.Is(err, blockchain.ErrSigningUnsupported) {
			err = fmt.Errorf("%w: %v", blockchain.ErrSigningUnsupported, err)
		}
		return storage.UploadRequest{}, err
	}
	return storage.UploadRequest{
		StorageAccount: account,
		Signer:         o.signer.Address(),
		Message:        msg,
		Signature:      sig,
		File:           file,
	}, nil
}

// AuthorizationMessage returns the text signed for one upload attempt.
func AuthorizationMessage(account common.Address, fileName, nonce string) string {
	sum := sha256.Sum256([]byte(fileName))
	return fmt.Sprintf("%sStorage Account: %s\nUpload file with hash: %s\nNonce: %s",
		SignedMessagePrefix, account.Hex(), hex.EncodeToString(sum[:]), nonce)
}

func (o *Orchestrator) accountSemaphore(account common.Address) *semaphore.Weighted {
	o.mu.Lock()
	defer o.mu.Unlock()
	sem, ok := o.accounts[account]
	if !ok {
		sem = semaphore.NewWeighted(int64(o.opts.PerAccount))
		o.accounts[account] = sem
	}
	return sem
}
