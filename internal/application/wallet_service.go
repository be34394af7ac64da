package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chainchat/internal/domain"
	"chainchat/internal/ports"
)

type WalletState string

const (
	WalletDisconnected WalletState = "disconnected"
	WalletConnecting   WalletState = "connecting"
	WalletConnected    WalletState = "connected"
)

const DefaultPollInterval = 30 * time.Second

// WalletSnapshot is a point-in-time copy of the wallet session state.
// The presentation layer reads snapshots and never mutates them.
type WalletSnapshot struct {
	State     WalletState
	Address   string
	Balance   float64
	LastError string
}

// WalletService owns the wallet identity lifecycle: creation, connection,
// disconnection, transaction submission, and background balance polling.
// The locally cached balance is advisory; the ledger is the final arbiter
// on every transfer.
type WalletService struct {
	ledger       ports.LedgerClient
	store        ports.IdentityStore
	logger       *zap.Logger
	pollInterval time.Duration
	pollLogEvery *rate.Limiter

	mu       sync.Mutex
	state    WalletState
	identity domain.Identity
	balance  float64
	lastErr  string
	// epoch invalidates in-flight responses from a previous identity.
	epoch uint64
	// fetchSeq/appliedSeq implement last-response-wins for balance
	// fetches: a response is discarded unless its sequence number is the
	// highest applied so far.
	fetchSeq   uint64
	appliedSeq uint64
	stopPoll   chan struct{}
	subs       map[int]func(WalletSnapshot)
	nextSubID  int
}

func NewWalletService(ledger ports.LedgerClient, store ports.IdentityStore, logger *zap.Logger, pollInterval time.Duration) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &WalletService{
		ledger:       ledger,
		store:        store,
		logger:       logger,
		pollInterval: pollInterval,
		pollLogEvery: rate.NewLimiter(rate.Every(time.Minute), 1),
		state:        WalletDisconnected,
		subs:         map[int]func(WalletSnapshot){},
	}
}

// CreateWallet requests a fresh identity from the ledger, persists it,
// and connects. Nothing is persisted when creation fails.
func (s *WalletService) CreateWallet(ctx context.Context) (domain.Identity, error) {
	s.beginConnecting()

	identity, err := s.ledger.CreateWallet(ctx)
	if err != nil {
		err = fmt.Errorf("create wallet: %w", err)
		s.failConnecting(err)
		return domain.Identity{}, err
	}

	if err := s.persistIdentity(ctx, identity); err != nil {
		s.failConnecting(err)
		return domain.Identity{}, err
	}

	connected := s.completeConnecting(identity)
	if err := s.RefreshBalance(ctx); err != nil {
		s.logger.Warn("initial balance fetch failed", zap.String("address", identity.Address), zap.Error(err))
	}

	return connected, nil
}

// Connect establishes a session from an explicit credential, or from the
// persisted identity when credential is empty. Reconnecting without a
// saved identity fails with domain.ErrNoSavedWallet before any network
// call; a saved address the ledger no longer knows fails with
// domain.ErrWalletNotFound.
func (s *WalletService) Connect(ctx context.Context, credential string) (domain.Identity, error) {
	if strings.TrimSpace(credential) != "" {
		return s.connectWithCredential(ctx, credential)
	}
	return s.connectSaved(ctx)
}

func (s *WalletService) connectWithCredential(ctx context.Context, credential string) (domain.Identity, error) {
	s.beginConnecting()

	identity, err := s.ledger.ImportWallet(ctx, credential)
	if err != nil {
		err = fmt.Errorf("import wallet: %w", err)
		s.failConnecting(err)
		return domain.Identity{}, err
	}

	if err := s.persistIdentity(ctx, identity); err != nil {
		s.failConnecting(err)
		return domain.Identity{}, err
	}

	connected := s.completeConnecting(identity)
	if err := s.RefreshBalance(ctx); err != nil {
		s.logger.Warn("initial balance fetch failed", zap.String("address", identity.Address), zap.Error(err))
	}

	return connected, nil
}

func (s *WalletService) connectSaved(ctx context.Context) (domain.Identity, error) {
	s.beginConnecting()

	address, err := s.store.Get(ctx, ports.KeyWalletAddress)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		err = fmt.Errorf("load saved wallet address: %w", err)
		s.failConnecting(err)
		return domain.Identity{}, err
	}
	credential, err := s.store.Get(ctx, ports.KeyPrivateKey)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		err = fmt.Errorf("load saved wallet credential: %w", err)
		s.failConnecting(err)
		return domain.Identity{}, err
	}
	if address == "" || credential == "" {
		s.failConnecting(domain.ErrNoSavedWallet)
		return domain.Identity{}, domain.ErrNoSavedWallet
	}

	// Existence check doubles as the initial balance fetch.
	balance, err := s.ledger.Balance(ctx, address)
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			err = fmt.Errorf("verify saved wallet: %w", err)
		}
		s.failConnecting(err)
		return domain.Identity{}, err
	}

	connected := s.completeConnecting(domain.Identity{Address: address, Credential: credential})

	s.mu.Lock()
	epoch := s.epoch
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()
	s.applyBalance(epoch, seq, balance)

	return connected, nil
}

// Disconnect clears the persisted and in-memory identity and stops
// polling. It is local-only, has no failure mode, and is idempotent.
func (s *WalletService) Disconnect() {
	s.mu.Lock()
	s.stopPollingLocked()
	s.epoch++
	s.identity = domain.Identity{}
	s.balance = 0
	s.lastErr = ""
	s.state = WalletDisconnected
	notify := s.publishLocked()
	s.mu.Unlock()

	ctx := context.Background()
	for _, key := range []string{ports.KeyWalletAddress, ports.KeyPrivateKey} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("clear persisted identity", zap.String("key", key), zap.Error(err))
		}
	}

	notify()
}

// SendTransaction validates locally, submits the transfer, and on success
// refetches the balance from the ledger. The sufficiency check reads the
// cached balance and may be stale; overlapping sends are not serialized
// and the ledger rejects any over-spend.
func (s *WalletService) SendTransaction(ctx context.Context, recipient string, amount float64) (domain.TransactionReceipt, error) {
	s.mu.Lock()
	if err := s.validateTransferLocked(recipient, amount); err != nil {
		s.lastErr = err.Error()
		notify := s.publishLocked()
		s.mu.Unlock()
		notify()
		return domain.TransactionReceipt{}, err
	}
	address := s.identity.Address
	epoch := s.epoch
	s.mu.Unlock()

	receipt, err := s.ledger.SubmitTransaction(ctx, address, recipient, amount)
	if err != nil {
		err = fmt.Errorf("submit transaction: %w", err)
		s.reportError(epoch, err)
		return domain.TransactionReceipt{}, err
	}

	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	balance, err := s.ledger.Balance(ctx, address)
	if err != nil {
		s.logger.Warn("post-transaction balance refresh failed", zap.String("address", address), zap.Error(err))
		return receipt, nil
	}
	s.applyBalance(epoch, seq, balance)

	return receipt, nil
}

func (s *WalletService) validateTransferLocked(recipient string, amount float64) error {
	if s.state != WalletConnected {
		return domain.ErrNotConnected
	}
	if strings.TrimSpace(recipient) == "" {
		return domain.ErrEmptyRecipient
	}
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return domain.ErrInvalidAmount
	}
	if amount > s.balance {
		return fmt.Errorf("%w: have %.6f, need %.6f", domain.ErrInsufficientBalance, s.balance, amount)
	}
	return nil
}

// RefreshBalance fetches the balance for the active identity. Responses
// are applied last-response-wins; callers treat failures as non-fatal.
func (s *WalletService) RefreshBalance(ctx context.Context) error {
	s.mu.Lock()
	if s.state != WalletConnected {
		s.mu.Unlock()
		return domain.ErrNotConnected
	}
	address := s.identity.Address
	epoch := s.epoch
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	balance, err := s.ledger.Balance(ctx, address)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	s.applyBalance(epoch, seq, balance)

	return nil
}

// ClearError clears the last reported error without other side effects.
func (s *WalletService) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *WalletService) Snapshot() WalletSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a fresh snapshot after every
// state change. The returned function unsubscribes.
func (s *WalletService) Subscribe(fn func(WalletSnapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// ActiveAddress satisfies IdentityProvider for the conversation service.
// It returns the empty string unless connected.
func (s *WalletService) ActiveAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WalletConnected {
		return ""
	}
	return s.identity.Address
}

// Close stops the background poller. Safe to call more than once.
func (s *WalletService) Close() {
	s.mu.Lock()
	s.stopPollingLocked()
	s.mu.Unlock()
}

func (s *WalletService) beginConnecting() {
	s.mu.Lock()
	s.stopPollingLocked()
	s.epoch++
	s.state = WalletConnecting
	s.lastErr = ""
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *WalletService) failConnecting(err error) {
	s.mu.Lock()
	s.state = WalletDisconnected
	s.identity = domain.Identity{}
	s.balance = 0
	s.lastErr = err.Error()
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *WalletService) completeConnecting(identity domain.Identity) domain.Identity {
	identity.Connected = true

	s.mu.Lock()
	s.identity = identity
	s.balance = 0
	s.appliedSeq = 0
	s.state = WalletConnected
	s.startPollingLocked()
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()

	return identity
}

func (s *WalletService) persistIdentity(ctx context.Context, identity domain.Identity) error {
	if err := s.store.Put(ctx, ports.KeyWalletAddress, identity.Address); err != nil {
		return fmt.Errorf("persist wallet address: %w", err)
	}
	if err := s.store.Put(ctx, ports.KeyPrivateKey, identity.Credential); err != nil {
		if cleanupErr := s.store.Delete(ctx, ports.KeyWalletAddress); cleanupErr != nil {
			return fmt.Errorf("persist wallet credential and roll back address: %w", errors.Join(err, cleanupErr))
		}
		return fmt.Errorf("persist wallet credential: %w", err)
	}
	return nil
}

func (s *WalletService) reportError(epoch uint64, err error) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.lastErr = err.Error()
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *WalletService) applyBalance(epoch, seq uint64, balance float64) {
	s.mu.Lock()
	if epoch != s.epoch || s.state != WalletConnected || seq <= s.appliedSeq {
		s.mu.Unlock()
		return
	}
	s.appliedSeq = seq
	s.balance = balance
	notify := s.publishLocked()
	s.mu.Unlock()
	notify()
}

func (s *WalletService) startPollingLocked() {
	if s.stopPoll != nil {
		return
	}
	stop := make(chan struct{})
	s.stopPoll = stop
	go s.poll(stop, s.epoch, s.identity.Address)
}

func (s *WalletService) stopPollingLocked() {
	if s.stopPoll != nil {
		close(s.stopPoll)
		s.stopPoll = nil
	}
}

// poll refetches the balance at a fixed interval until stopped. Failures
// are logged (throttled) and never surfaced.
func (s *WalletService) poll(stop <-chan struct{}, epoch uint64, address string) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.fetchSeq++
			seq := s.fetchSeq
			s.mu.Unlock()

			balance, err := s.ledger.Balance(context.Background(), address)
			if err != nil {
				if s.pollLogEvery.Allow() {
					s.logger.Warn("balance poll failed", zap.String("address", address), zap.Error(err))
				}
				continue
			}
			s.applyBalance(epoch, seq, balance)
		}
	}
}

func (s *WalletService) snapshotLocked() WalletSnapshot {
	return WalletSnapshot{
		State:     s.state,
		Address:   s.identity.Address,
		Balance:   s.balance,
		LastError: s.lastErr,
	}
}

func (s *WalletService) publishLocked() func() {
	snap := s.snapshotLocked()
	fns := make([]func(WalletSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}

	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}
