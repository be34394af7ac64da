package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainchat/internal/domain"
	"chainchat/internal/ports"
)

type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	putErr map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrKeyNotFound, key)
	}
	return value, nil
}

func (f *fakeStore) Put(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.putErr[key]; err != nil {
		return err
	}
	f.values[key] = value
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeStore) get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

type fakeLedger struct {
	mu           sync.Mutex
	createFn     func(ctx context.Context) (domain.Identity, error)
	importFn     func(ctx context.Context, privateKey string) (domain.Identity, error)
	balanceFn    func(ctx context.Context, address string) (float64, error)
	submitFn     func(ctx context.Context, from, recipient string, amount float64) (domain.TransactionReceipt, error)
	balanceCalls int
	submitCalls  int
}

var _ ports.LedgerClient = (*fakeLedger)(nil)

func (f *fakeLedger) CreateWallet(ctx context.Context) (domain.Identity, error) {
	f.mu.Lock()
	fn := f.createFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Identity{}, errors.New("create not scripted")
	}
	return fn(ctx)
}

func (f *fakeLedger) ImportWallet(ctx context.Context, privateKey string) (domain.Identity, error) {
	f.mu.Lock()
	fn := f.importFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Identity{}, errors.New("import not scripted")
	}
	return fn(ctx, privateKey)
}

func (f *fakeLedger) Balance(ctx context.Context, address string) (float64, error) {
	f.mu.Lock()
	f.balanceCalls++
	fn := f.balanceFn
	f.mu.Unlock()
	if fn == nil {
		return 0, errors.New("balance not scripted")
	}
	return fn(ctx, address)
}

func (f *fakeLedger) SubmitTransaction(ctx context.Context, from, recipient string, amount float64) (domain.TransactionReceipt, error) {
	f.mu.Lock()
	f.submitCalls++
	fn := f.submitFn
	f.mu.Unlock()
	if fn == nil {
		return domain.TransactionReceipt{}, errors.New("submit not scripted")
	}
	return fn(ctx, from, recipient, amount)
}

func (f *fakeLedger) ChainInfo(context.Context) (domain.ChainInfo, error) {
	return domain.ChainInfo{}, errors.New("chain info not scripted")
}

func (f *fakeLedger) setBalanceFn(fn func(ctx context.Context, address string) (float64, error)) {
	f.mu.Lock()
	f.balanceFn = fn
	f.mu.Unlock()
}

func (f *fakeLedger) balanceCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls
}

func (f *fakeLedger) submitCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

func staticBalance(balance float64) func(context.Context, string) (float64, error) {
	return func(context.Context, string) (float64, error) {
		return balance, nil
	}
}

type fakeChat struct {
	mu            sync.Mutex
	sendFn        func(ctx context.Context, req ports.ChatRequest) (ports.ChatReply, error)
	feedbackFn    func(ctx context.Context, address, responseID string, feedback domain.FeedbackType) error
	requests      []ports.ChatRequest
	feedbackCalls int
}

var _ ports.ChatClient = (*fakeChat)(nil)

func (f *fakeChat) SendMessage(ctx context.Context, req ports.ChatRequest) (ports.ChatReply, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return ports.ChatReply{}, errors.New("send not scripted")
	}
	return fn(ctx, req)
}

func (f *fakeChat) SendFeedback(ctx context.Context, address, responseID string, feedback domain.FeedbackType) error {
	f.mu.Lock()
	f.feedbackCalls++
	fn := f.feedbackFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, address, responseID, feedback)
}

func (f *fakeChat) sentRequests() []ports.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	requests := make([]ports.ChatRequest, len(f.requests))
	copy(requests, f.requests)
	return requests
}

func (f *fakeChat) feedbackCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedbackCalls
}

type fakeIdentitySource struct {
	address string
}

func (f fakeIdentitySource) ActiveAddress() string {
	return f.address
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}
