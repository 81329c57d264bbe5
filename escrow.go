package tijori

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bell24h/tijori/internal/apierror"
	redlock "github.com/bell24h/tijori/internal/lock"
	"github.com/bell24h/tijori/model"
)

const (
	escrowLockTTL  = 30 * time.Second
	escrowLockWait = 5 * time.Second
)

func escrowWalletRef(escrowID string) string {
	return "@escrow_" + escrowID
}

// lockEscrow serializes mutations on a single escrow aggregate across
// processes. The returned locker must be unlocked by the caller.
func (l *Tijori) lockEscrow(ctx context.Context, escrowID string) (*redlock.Locker, error) {
	locker := redlock.NewLocker(l.redis, "lock:escrow:"+escrowID, uuid.New().String())
	if err := locker.WaitLock(ctx, escrowLockTTL, escrowLockWait); err != nil {
		return nil, err
	}
	return locker, nil
}

func unlock(ctx context.Context, locker *redlock.Locker) {
	if err := locker.Unlock(ctx); err != nil {
		logrus.Error("escrow unlock error: ", err)
	}
}

// CreateEscrow persists a new pending escrow for a routed transaction
// and announces it.
func (l *Tijori) CreateEscrow(ctx context.Context, transaction *model.Transaction, specs []model.MilestoneSpec, fees model.Fees) (*model.Escrow, error) {
	ctx, span := tracer.Start(ctx, "Creating escrow")
	defer span.End()

	escrow, err := model.NewEscrow(transaction, specs, fees)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := l.datasource.CreateEscrow(ctx, escrow); err != nil {
		return nil, logAndRecordError(span, "saving escrow to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event:   model.EventEscrowCreated,
		Payload: model.NewDomainEvent(model.EventEscrowCreated, escrow.EscrowID, "", string(model.EscrowPending), map[string]interface{}{"total_amount": escrow.TotalAmount, "milestones": len(escrow.Milestones)}),
	})
	return escrow, nil
}

// FundEscrow moves the gross amount from the buyer into the escrow's
// holding wallet and activates the escrow. The ledger movements happen
// before the state transition is persisted so a failed movement leaves
// the escrow pending and the operation retryable.
func (l *Tijori) FundEscrow(ctx context.Context, escrowID string) (*model.Escrow, error) {
	ctx, span := tracer.Start(ctx, "Funding escrow")
	defer span.End()

	locker, err := l.lockEscrow(ctx, escrowID)
	if err != nil {
		return nil, logAndRecordError(span, "acquiring escrow lock error: ", err)
	}
	defer unlock(ctx, locker)

	escrow, err := l.datasource.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if err := escrow.Fund(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	required := escrow.TotalAmount
	balance, err := l.wallet.GetBalance(ctx, escrow.BuyerRef)
	if err != nil {
		return nil, logAndRecordError(span, "balance lookup error: ", err)
	}
	if balance.Available < required {
		return nil, insufficientBalance(required, balance.Available)
	}

	holding := escrowWalletRef(escrow.EscrowID)
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Debit(opCtx, escrow.BuyerRef, required, escrow.EscrowID+"-fund-debit")
	}); err != nil {
		return nil, err
	}
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Credit(opCtx, holding, required, escrow.EscrowID+"-fund-credit")
	}); err != nil {
		return nil, err
	}

	if err := l.datasource.UpdateEscrowStatus(ctx, escrow); err != nil {
		return nil, logAndRecordError(span, "saving escrow to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event:   model.EventEscrowFunded,
		Payload: model.NewDomainEvent(model.EventEscrowFunded, escrow.EscrowID, string(model.EscrowPending), string(model.EscrowActive), map[string]interface{}{"funded_amount": required}),
	})
	return escrow, nil
}

// ReleaseEscrow pays out a fully approved escrow: net amount to the
// seller, fees to the fees wallet. Releasability is checked before any
// money moves.
func (l *Tijori) ReleaseEscrow(ctx context.Context, escrowID string) (*model.Escrow, error) {
	ctx, span := tracer.Start(ctx, "Releasing escrow")
	defer span.End()

	locker, err := l.lockEscrow(ctx, escrowID)
	if err != nil {
		return nil, logAndRecordError(span, "acquiring escrow lock error: ", err)
	}
	defer unlock(ctx, locker)

	escrow, err := l.datasource.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	if err := escrow.CanRelease(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	holding := escrowWalletRef(escrow.EscrowID)
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Debit(opCtx, holding, escrow.TotalAmount, escrow.EscrowID+"-release-debit")
	}); err != nil {
		return nil, err
	}
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Credit(opCtx, escrow.SellerRef, escrow.Fees.NetAmount, escrow.EscrowID+"-release-credit")
	}); err != nil {
		return nil, err
	}
	if err := executeLedger(ctx, func(opCtx context.Context) error {
		return l.ledger.Credit(opCtx, feesWalletRef, escrow.Fees.TotalFees, escrow.EscrowID+"-release-fees")
	}); err != nil {
		return nil, err
	}

	if err := escrow.Release(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := l.datasource.UpdateEscrowStatus(ctx, escrow); err != nil {
		return nil, logAndRecordError(span, "saving escrow to db error: ", err)
	}

	go l.SendWebhook(NewWebhook{
		Event:   model.EventEscrowReleased,
		Payload: model.NewDomainEvent(model.EventEscrowReleased, escrow.EscrowID, string(model.EscrowActive), string(model.EscrowCompleted), map[string]interface{}{"net_amount": escrow.Fees.NetAmount}),
	})
	return escrow, nil
}

// GetEscrow fetches an escrow with its milestones.
func (l *Tijori) GetEscrow(ctx context.Context, escrowID string) (*model.Escrow, error) {
	return l.datasource.GetEscrow(ctx, escrowID)
}

// EscrowProgress reports the completion percentage of an escrow.
func (l *Tijori) EscrowProgress(ctx context.Context, escrowID string) (int, error) {
	escrow, err := l.datasource.GetEscrow(ctx, escrowID)
	if err != nil {
		return 0, err
	}
	return escrow.Progress(), nil
}

func insufficientBalance(required, available int64) error {
	return apierror.NewAPIError(apierror.ErrInsufficientBalance,
		fmt.Sprintf("wallet has %s available but %s is required", model.FormatAmount(available), model.FormatAmount(required)),
		map[string]interface{}{
			"required":  required,
			"available": available,
		})
}
