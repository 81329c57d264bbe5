package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

func (d Datasource) RecordTransfer(ctx context.Context, transfer *model.DirectTransfer) (*model.DirectTransfer, error) {
	ctx, span := otel.Tracer("transfer.database").Start(ctx, "Saving direct transfer to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO direct_transfers(transfer_id,transaction_id,buyer_ref,seller_ref,amount,currency,transaction_fee,gst_amount,total_fees,net_amount,status,attempts,requeued,failure_reason,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		transfer.TransferID, transfer.TransactionID, transfer.BuyerRef, transfer.SellerRef, transfer.Amount, transfer.Currency,
		transfer.Fees.TransactionFee, transfer.Fees.GSTAmount, transfer.Fees.TotalFees, transfer.Fees.NetAmount,
		transfer.Status, transfer.Attempts, transfer.Requeued, transfer.FailureReason, transfer.CreatedAt, transfer.UpdatedAt,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transfer", err)
	}

	return transfer, nil
}

func (d Datasource) GetTransfer(ctx context.Context, id string) (*model.DirectTransfer, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT transfer_id, transaction_id, buyer_ref, seller_ref, amount, currency, transaction_fee, gst_amount, total_fees, net_amount, status, attempts, requeued, failure_reason, created_at, updated_at, completed_at
		FROM direct_transfers
		WHERE transfer_id = $1
	`, id)

	transfer := &model.DirectTransfer{}
	var failureReason sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&transfer.TransferID, &transfer.TransactionID, &transfer.BuyerRef, &transfer.SellerRef,
		&transfer.Amount, &transfer.Currency, &transfer.Fees.TransactionFee, &transfer.Fees.GSTAmount,
		&transfer.Fees.TotalFees, &transfer.Fees.NetAmount, &transfer.Status, &transfer.Attempts,
		&transfer.Requeued, &failureReason, &transfer.CreatedAt, &transfer.UpdatedAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transfer with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transfer", err)
	}

	if failureReason.Valid {
		transfer.FailureReason = failureReason.String
	}
	if completedAt.Valid {
		transfer.CompletedAt = &completedAt.Time
	}

	return transfer, nil
}

func (d Datasource) UpdateTransfer(ctx context.Context, transfer *model.DirectTransfer) error {
	ctx, span := otel.Tracer("transfer.database").Start(ctx, "Updating direct transfer")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE direct_transfers
		SET status = $2, attempts = $3, requeued = $4, failure_reason = $5, updated_at = $6, completed_at = $7
		WHERE transfer_id = $1
	`, transfer.TransferID, transfer.Status, transfer.Attempts, transfer.Requeued, transfer.FailureReason, transfer.UpdatedAt, transfer.CompletedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update transfer", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transfer with ID '%s' not found", transfer.TransferID), nil)
	}

	return nil
}
