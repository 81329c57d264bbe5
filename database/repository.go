package database

import (
	"context"

	"github.com/bell24h/tijori/model"
)

type transaction interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	TransactionExistsByRef(ctx context.Context, reference string) (bool, error)
}

type transfer interface {
	RecordTransfer(ctx context.Context, transfer *model.DirectTransfer) (*model.DirectTransfer, error)
	GetTransfer(ctx context.Context, id string) (*model.DirectTransfer, error)
	UpdateTransfer(ctx context.Context, transfer *model.DirectTransfer) error
}

type escrow interface {
	CreateEscrow(ctx context.Context, escrow *model.Escrow) (*model.Escrow, error)
	GetEscrow(ctx context.Context, id string) (*model.Escrow, error)
	UpdateEscrowStatus(ctx context.Context, escrow *model.Escrow) error
	UpdateMilestone(ctx context.Context, milestone *model.Milestone) error
}

type dispute interface {
	RecordDispute(ctx context.Context, dispute *model.Dispute) (*model.Dispute, error)
	GetDispute(ctx context.Context, id string) (*model.Dispute, error)
	GetOpenDispute(ctx context.Context, escrowID string) (*model.Dispute, error)
	UpdateDispute(ctx context.Context, dispute *model.Dispute) error
}

// IDataSource is the persistence boundary for all settlement
// aggregates.
type IDataSource interface {
	transaction
	transfer
	escrow
	dispute
}
