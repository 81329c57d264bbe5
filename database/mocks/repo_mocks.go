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
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bell24h/tijori/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Transaction methods

func (m *MockDataSource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) TransactionExistsByRef(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

// Transfer methods

func (m *MockDataSource) RecordTransfer(ctx context.Context, transfer *model.DirectTransfer) (*model.DirectTransfer, error) {
	args := m.Called(ctx, transfer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DirectTransfer), args.Error(1)
}

func (m *MockDataSource) GetTransfer(ctx context.Context, id string) (*model.DirectTransfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DirectTransfer), args.Error(1)
}

func (m *MockDataSource) UpdateTransfer(ctx context.Context, transfer *model.DirectTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

// Escrow methods

func (m *MockDataSource) CreateEscrow(ctx context.Context, escrow *model.Escrow) (*model.Escrow, error) {
	args := m.Called(ctx, escrow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Escrow), args.Error(1)
}

func (m *MockDataSource) GetEscrow(ctx context.Context, id string) (*model.Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Escrow), args.Error(1)
}

func (m *MockDataSource) UpdateEscrowStatus(ctx context.Context, escrow *model.Escrow) error {
	args := m.Called(ctx, escrow)
	return args.Error(0)
}

func (m *MockDataSource) UpdateMilestone(ctx context.Context, milestone *model.Milestone) error {
	args := m.Called(ctx, milestone)
	return args.Error(0)
}

// Dispute methods

func (m *MockDataSource) RecordDispute(ctx context.Context, dispute *model.Dispute) (*model.Dispute, error) {
	args := m.Called(ctx, dispute)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dispute), args.Error(1)
}

func (m *MockDataSource) GetDispute(ctx context.Context, id string) (*model.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dispute), args.Error(1)
}

func (m *MockDataSource) GetOpenDispute(ctx context.Context, escrowID string) (*model.Dispute, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dispute), args.Error(1)
}

func (m *MockDataSource) UpdateDispute(ctx context.Context, dispute *model.Dispute) error {
	args := m.Called(ctx, dispute)
	return args.Error(0)
}
