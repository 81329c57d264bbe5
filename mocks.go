/*
Copyright 2025 Tijori Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tijori

import (
	"context"
	"sync"

	"github.com/bell24h/tijori/model"
)

// MockWalletProvider serves canned balances keyed by wallet ref.
type MockWalletProvider struct {
	mu       sync.Mutex
	Balances map[string]*model.WalletBalance
	Err      error
}

func (m *MockWalletProvider) GetBalance(_ context.Context, walletRef string) (*model.WalletBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if balance, ok := m.Balances[walletRef]; ok {
		return balance, nil
	}
	return &model.WalletBalance{}, nil
}

// LedgerMovement records one debit or credit applied to the mock
// ledger, including the idempotency key the engine sent.
type LedgerMovement struct {
	Op             string
	WalletRef      string
	Amount         int64
	IdempotencyKey string
}

// MockLedgerExecutor records movements and can be primed to fail a
// given number of calls before succeeding.
type MockLedgerExecutor struct {
	mu        sync.Mutex
	Movements []LedgerMovement
	FailNext  int
	Err       error
	seen      map[string]bool
}

func (m *MockLedgerExecutor) apply(op, walletRef string, amount int64, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext > 0 {
		m.FailNext--
		return m.Err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[idempotencyKey] {
		return nil
	}
	m.seen[idempotencyKey] = true
	m.Movements = append(m.Movements, LedgerMovement{Op: op, WalletRef: walletRef, Amount: amount, IdempotencyKey: idempotencyKey})
	return nil
}

func (m *MockLedgerExecutor) Debit(_ context.Context, walletRef string, amount int64, idempotencyKey string) error {
	return m.apply("debit", walletRef, amount, idempotencyKey)
}

func (m *MockLedgerExecutor) Credit(_ context.Context, walletRef string, amount int64, idempotencyKey string) error {
	return m.apply("credit", walletRef, amount, idempotencyKey)
}

// MockTierProvider returns a fixed tier per user ref, defaulting to
// free.
type MockTierProvider struct {
	Tiers map[string]model.Tier
}

func (m *MockTierProvider) GetTier(_ context.Context, userRef string) (model.Tier, error) {
	if tier, ok := m.Tiers[userRef]; ok {
		return tier, nil
	}
	return model.TierFree, nil
}
