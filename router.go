package tijori

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

var (
	tracer = otel.Tracer("tijori.settlement")
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// Route decides the settlement path for a transaction. Amounts at or
// above the escrow threshold must settle through escrow; the boundary
// itself is inclusive on the escrow side. The balance snapshot is only
// consulted on the direct path; pass nil to have the wallet provider
// fetch one.
func (l *Tijori) Route(ctx context.Context, transaction *model.Transaction, balance *model.WalletBalance) (*model.RoutingDecision, error) {
	ctx, span := tracer.Start(ctx, "Routing transaction")
	defer span.End()

	if err := transaction.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	threshold := conf.Settlement.EscrowThreshold

	tier, err := l.tiers.GetTier(ctx, transaction.BuyerRef)
	if err != nil {
		return nil, logAndRecordError(span, "tier lookup error: ", err)
	}

	path := model.PathDirect
	if transaction.Amount >= threshold {
		path = model.PathEscrow
	}

	fees, err := model.ComputeFees(transaction.Amount, tier, path, l.feeSchedule, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if path == model.PathDirect {
		if balance == nil {
			balance, err = l.wallet.GetBalance(ctx, transaction.BuyerRef)
			if err != nil {
				return nil, logAndRecordError(span, "balance lookup error: ", err)
			}
		}
		required := transaction.Amount + fees.TotalFees
		if balance.Available < required {
			err := insufficientBalance(required, balance.Available)
			span.RecordError(err)
			return nil, err
		}
	}

	return &model.RoutingDecision{
		TransactionID: transaction.TransactionID,
		Path:          path,
		FeeEstimate:   fees,
		Threshold:     threshold,
		DecidedAt:     time.Now(),
	}, nil
}

func (l *Tijori) validateTxn(ctx context.Context, transaction *model.Transaction) error {
	ctx, span := tracer.Start(ctx, "Validating transaction reference")
	defer span.End()
	exists, err := l.datasource.TransactionExistsByRef(ctx, transaction.Reference)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			return nil
		}
		return err
	}

	if exists {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("reference %s has already been used", transaction.Reference), nil)
	}

	return nil
}

// SubmitTransaction routes a transaction and materializes the derived
// settlement record: a DirectTransfer in validation status on the
// direct path, or a pending Escrow with its milestones on the escrow
// path. The transaction itself is immutable from here on.
func (l *Tijori) SubmitTransaction(ctx context.Context, transaction *model.Transaction, specs []model.MilestoneSpec) (*model.RoutingDecision, error) {
	ctx, span := tracer.Start(ctx, "Submitting transaction")
	defer span.End()

	if err := l.validateTxn(ctx, transaction); err != nil {
		return nil, err
	}

	transaction.TransactionID = model.GenerateUUIDWithSuffix("txn")
	transaction.CreatedAt = time.Now()
	transaction.Hash = transaction.HashTxn()

	decision, err := l.Route(ctx, transaction, nil)
	if err != nil {
		return nil, err
	}
	decision.TransactionID = transaction.TransactionID

	if _, err := l.datasource.RecordTransaction(ctx, transaction); err != nil {
		return nil, logAndRecordError(span, "saving transaction to db error: ", err)
	}

	switch decision.Path {
	case model.PathDirect:
		transfer := model.NewDirectTransfer(transaction, decision.FeeEstimate)
		if _, err := l.datasource.RecordTransfer(ctx, transfer); err != nil {
			return nil, logAndRecordError(span, "saving transfer to db error: ", err)
		}
	case model.PathEscrow:
		if len(specs) == 0 {
			// A single full-amount milestone keeps the escrow machinery
			// uniform when the caller does not break the work down.
			specs = []model.MilestoneSpec{{
				Name:                  "full delivery",
				Amount:                transaction.Amount,
				RequiredConfirmations: 1,
			}}
		}
		if _, err := l.CreateEscrow(ctx, transaction, specs, decision.FeeEstimate); err != nil {
			return nil, err
		}
	}

	return decision, nil
}

// GetTransaction fetches a transaction by id.
func (l *Tijori) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	return l.datasource.GetTransaction(ctx, transactionID)
}
