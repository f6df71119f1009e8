package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shamank/shdw-sdk-go/pkg/account"
	"github.com/shamank/shdw-sdk-go/pkg/blockchain"
	"github.com/shamank/shdw-sdk-go/pkg/instruction"
	"github.com/shamank/shdw-sdk-go/pkg/model"
	"github.com/shamank/shdw-sdk-go/pkg/quota"
	"github.com/shamank/shdw-sdk-go/pkg/storage"
	"github.com/shamank/shdw-sdk-go/pkg/upload"
)

var (
	// ErrValidationRejected is returned when an operation is refused locally,
	// before anything is sent.
	ErrValidationRejected = instruction.ErrValidationRejected
	// ErrNoSigner is returned by mutating operations of a read-only manager.
	ErrNoSigner = errors.New("no signer configured")
)

// ManagerConfig wires a Manager. Submitter and Builder are required; Signer
// is required for mutations and Uploads for Upload. Usage may be nil, in
// which case V2 usage is only tracked locally.
type ManagerConfig struct {
	Submitter *blockchain.Submitter
	Builder   *instruction.Builder
	Signer    blockchain.Signer
	Uploads   *upload.Orchestrator
	Usage     storage.UsageReporter
	// ReceiptWait bounds one submit and confirm cycle. Zero means the
	// caller's context alone bounds it.
	ReceiptWait time.Duration
	// ChainRead bounds account reads.
	ChainRead time.Duration
}

// Manager owns the storage accounts of one signer. It serializes mutations
// per account and keeps an advisory snapshot of every account it has seen.
// Snapshots change only after a confirmed transaction or an explicit refresh.
type Manager struct {
	cfg    ManagerConfig
	quota  *quota.Tracker
	tracer trace.Tracer

	mu    sync.RWMutex
	cache map[common.Address]account.StorageAccount

	locksMu sync.Mutex
	locks   map[common.Address]*sync.Mutex
}

// NewManager returns a Manager over cfg.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:    cfg,
		quota:  quota.NewTracker(),
		tracer: otel.Tracer("shdw-sdk/manager"),
		cache:  make(map[common.Address]account.StorageAccount),
		locks:  make(map[common.Address]*sync.Mutex),
	}
}

// Owner returns the signer address, or the zero address when read-only.
func (m *Manager) Owner() common.Address {
	if m.cfg.Signer == nil {
		return common.Address{}
	}
	return m.cfg.Signer.Address()
}

// Create reserves a new storage account of size bytes with the default layout.
func (m *Manager) Create(ctx context.Context, label string, size uint64) (account.StorageAccount, error) {
	return m.CreateWithVersion(ctx, account.DefaultVersion, label, size)
}

// CreateWithVersion reserves a new storage account with layout v. The
// account address is derived from the owner's current account counter.
func (m *Manager) CreateWithVersion(ctx context.Context, v account.Version, label string, size uint64) (acct account.StorageAccount, err error) {
	ctx, span := m.tracer.Start(ctx, "storage.create",
		trace.WithAttributes(attribute.String("label", label), attribute.Int64("size", int64(size)), attribute.String("version", v.String())))
	defer func() { endSpan(span, err) }()

	if m.cfg.Signer == nil {
		return nil, ErrNoSigner
	}
	owner := m.cfg.Signer.Address()
	ops, err := m.cfg.Builder.For(v)
	if err != nil {
		return nil, err
	}

	seed, err := m.nextSeed(ctx, owner)
	if err != nil {
		return nil, err
	}
	addr := account.StorageAccountAddress(m.cfg.Builder.Program, owner, seed)
	span.SetAttributes(attribute.String("account", addr.Hex()))

	unlock := m.lock(addr)
	defer unlock()

	ix, err := ops.Create(instruction.CreateParams{Owner: owner, Label: label, Size: size, Seed: seed})
	if err != nil {
		return nil, err
	}
	if err := m.submit(ctx, ix); err != nil {
		return nil, err
	}
	zap.L().Info("Storage account created",
		zap.String("account", addr.Hex()),
		zap.String("label", label),
		zap.String("size", model.FormatSize(size)))
	return m.refresh(ctx, addr)
}

// Resize grows the account by delta bytes, or shrinks it when delta is
// negative. Shrinking below used bytes and shrinking immutable accounts are
// rejected before anything is sent.
func (m *Manager) Resize(ctx context.Context, addr common.Address, delta int64) (acct account.StorageAccount, err error) {
	ctx, span := m.tracer.Start(ctx, "storage.resize",
		trace.WithAttributes(attribute.String("account", addr.Hex()), attribute.Int64("delta", delta)))
	defer func() { endSpan(span, err) }()

	if m.cfg.Signer == nil {
		return nil, ErrNoSigner
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: resize by zero bytes", ErrValidationRejected)
	}

	unlock := m.lock(addr)
	defer unlock()

	current, err := m.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	ops, err := m.cfg.Builder.ForAccount(current)
	if err != nil {
		return nil, err
	}

	var ix *instruction.Instruction
	if delta > 0 {
		ix, err = ops.IncreaseStorage(current, uint64(delta))
	} else {
		ix, err = ops.DecreaseStorage(current, uint64(-delta), quota.FromAccount(current))
	}
	if err != nil {
		zap.L().Warn("Resize rejected", zap.String("account", addr.Hex()), zap.Int64("delta", delta), zap.Error(err))
		return nil, err
	}
	if err := m.submit(ctx, ix); err != nil {
		return nil, err
	}
	return m.refresh(ctx, addr)
}

// MarkImmutable makes the account permanent. Stored files and reserved bytes
// are kept; afterwards the account can only grow.
func (m *Manager) MarkImmutable(ctx context.Context, addr common.Address) (acct account.StorageAccount, err error) {
	ctx, span := m.tracer.Start(ctx, "storage.mark_immutable",
		trace.WithAttributes(attribute.String("account", addr.Hex())))
	defer func() { endSpan(span, err) }()

	if m.cfg.Signer == nil {
		return nil, ErrNoSigner
	}

	unlock := m.lock(addr)
	defer unlock()

	current, err := m.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	ops, err := m.cfg.Builder.ForAccount(current)
	if err != nil {
		return nil, err
	}
	ix, err := ops.MarkImmutable(current)
	if err != nil {
		return nil, err
	}
	if err := m.submit(ctx, ix); err != nil {
		return nil, err
	}
	return m.refresh(ctx, addr)
}

// Upload stores files in the account. The batch is rejected when names
// repeat or its total size exceeds the account's remaining bytes; any other
// problem with a file is reported in that file's result. On return the
// snapshot's used bytes include every stored file until the next refresh.
func (m *Manager) Upload(ctx context.Context, addr common.Address, files []model.ShadowFile) (results []model.UploadResult, err error) {
	ctx, span := m.tracer.Start(ctx, "storage.upload",
		trace.WithAttributes(attribute.String("account", addr.Hex()), attribute.Int("files", len(files))))
	defer func() { endSpan(span, err) }()

	if m.cfg.Uploads == nil {
		return nil, ErrNoSigner
	}
	if err := upload.CheckBatch(files); err != nil {
		return nil, err
	}

	unlock := m.lock(addr)
	defer unlock()

	current, ok := m.Cached(addr)
	if !ok {
		if current, err = m.refresh(ctx, addr); err != nil {
			return nil, err
		}
	}
	if current.ToBeDeleted() {
		return nil, fmt.Errorf("%w: account %s is marked for deletion", ErrValidationRejected, addr.Hex())
	}

	// Files whose size cannot be read fail on their own during the upload.
	var total uint64
	for _, f := range files {
		if size, err := f.Size(); err == nil {
			total += uint64(size)
		}
	}
	if !m.quota.CanStore(addr, total) {
		remaining, _ := m.quota.Remaining(addr)
		return nil, fmt.Errorf("%w: batch of %s exceeds remaining %s", ErrValidationRejected,
			model.FormatSize(total), model.FormatSize(remaining))
	}

	results, err = m.cfg.Uploads.Upload(ctx, addr, files)

	var stored uint64
	for _, r := range results {
		if r.OK() {
			stored += uint64(r.Size)
		}
	}
	if stored > 0 {
		m.mu.Lock()
		if snap, ok := m.cache[addr]; ok {
			snap = account.WithAddedUsage(snap, stored)
			m.cache[addr] = snap
			m.quota.Observe(snap)
		}
		m.mu.Unlock()
	}
	span.SetAttributes(attribute.Int("failed", len(model.FailedResults(results))))
	return results, err
}

// Account reads the account from the ledger, attaches server-verified usage
// and updates the snapshot.
func (m *Manager) Account(ctx context.Context, addr common.Address) (account.StorageAccount, error) {
	return m.refresh(ctx, addr)
}

// Cached returns the last snapshot of addr without any network call.
func (m *Manager) Cached(addr common.Address) (account.StorageAccount, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.cache[addr]
	return acct, ok
}

// Accounts lists every storage account of the signer, in creation order.
// Addresses without an account (deleted ones) are skipped.
func (m *Manager) Accounts(ctx context.Context) ([]account.StorageAccount, error) {
	if m.cfg.Signer == nil {
		return nil, ErrNoSigner
	}
	owner := m.cfg.Signer.Address()
	count, err := m.nextSeed(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]account.StorageAccount, 0, count)
	for seed := uint32(0); seed < count; seed++ {
		addr := account.StorageAccountAddress(m.cfg.Builder.Program, owner, seed)
		acct, err := m.refresh(ctx, addr)
		if errors.Is(err, blockchain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

// nextSeed returns the owner's account counter, zero before the first account.
func (m *Manager) nextSeed(ctx context.Context, owner common.Address) (uint32, error) {
	ctx, cancel := m.readContext(ctx)
	defer cancel()
	blob, err := m.cfg.Submitter.FetchAccount(ctx, account.UserInfoAddress(m.cfg.Builder.Program, owner))
	if errors.Is(err, blockchain.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read user info: %w", err)
	}
	info, err := account.DecodeUserInfo(blob)
	if err != nil {
		return 0, err
	}
	return info.AccountCounter, nil
}

// refresh loads addr and stores the snapshot.
func (m *Manager) refresh(ctx context.Context, addr common.Address) (account.StorageAccount, error) {
	acct, err := m.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	m.store(acct)
	return acct, nil
}

// load reads addr and attaches usage. The snapshot is not touched.
func (m *Manager) load(ctx context.Context, addr common.Address) (account.StorageAccount, error) {
	ctx, cancel := m.readContext(ctx)
	defer cancel()

	blob, err := m.cfg.Submitter.FetchAccount(ctx, addr)
	if err != nil {
		if !errors.Is(err, blockchain.ErrAccountNotFound) {
			zap.L().Error("Failed to read storage account", zap.String("account", addr.Hex()), zap.Error(err))
		}
		return nil, fmt.Errorf("read account %s: %w", addr.Hex(), err)
	}
	acct, err := account.DecodeAt(addr, blob)
	if err != nil {
		return nil, err
	}

	if acct.Version() == account.V2 {
		used, ok := uint64(0), false
		if m.cfg.Usage != nil {
			if u, err := m.cfg.Usage.StorageUsage(ctx, addr); err == nil {
				used, ok = u, true
			} else {
				zap.L().Warn("Usage lookup failed, keeping local figure", zap.String("account", addr.Hex()), zap.Error(err))
			}
		}
		if !ok {
			if prev, cached := m.Cached(addr); cached {
				used = prev.Used()
			}
		}
		acct = account.WithUsage(acct, used)
	}
	return acct, nil
}

func (m *Manager) store(acct account.StorageAccount) {
	m.mu.Lock()
	m.cache[acct.Address()] = acct
	m.quota.Observe(acct)
	m.mu.Unlock()
}

// submit sends ixs and waits for a terminal state. Errors are returned
// verbatim so callers can inspect the *blockchain.SubmitError.
func (m *Manager) submit(ctx context.Context, ixs ...*instruction.Instruction) error {
	if m.cfg.ReceiptWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ReceiptWait)
		defer cancel()
	}
	receipt, err := m.cfg.Submitter.Submit(ctx, m.cfg.Signer, ixs...)
	if err != nil {
		return err
	}
	zap.L().Debug("Transaction confirmed",
		zap.String("hash", receipt.Hash.Hex()),
		zap.String("instruction", ixs[0].Name),
		zap.Int("polls", receipt.Attempts))
	return nil
}

func (m *Manager) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.ChainRead > 0 {
		return context.WithTimeout(ctx, m.cfg.ChainRead)
	}
	return ctx, func() {}
}

func (m *Manager) lock(addr common.Address) func() {
	m.locksMu.Lock()
	mu, ok := m.locks[addr]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[addr] = mu
	}
	m.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
