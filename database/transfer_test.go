package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

func testTransfer() *model.DirectTransfer {
	now := time.Now()
	return &model.DirectTransfer{
		TransferID:    model.GenerateUUIDWithSuffix("dtf"),
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		BuyerRef:      "buyer_1",
		SellerRef:     "seller_1",
		Amount:        15000000,
		Currency:      "INR",
		Fees:          model.Fees{TransactionFee: 375000, GSTAmount: 67500, TotalFees: 442500, NetAmount: 14557500},
		Status:        model.TransferValidation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRecordTransfer(t *testing.T) {
	d, mock := newTestDatasource(t)
	transfer := testTransfer()

	mock.ExpectExec("INSERT INTO direct_transfers").
		WithArgs(transfer.TransferID, transfer.TransactionID, transfer.BuyerRef, transfer.SellerRef,
			transfer.Amount, transfer.Currency, transfer.Fees.TransactionFee, transfer.Fees.GSTAmount,
			transfer.Fees.TotalFees, transfer.Fees.NetAmount, string(transfer.Status), transfer.Attempts,
			transfer.Requeued, transfer.FailureReason, transfer.CreatedAt, transfer.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorded, err := d.RecordTransfer(context.Background(), transfer)
	assert.NoError(t, err)
	assert.Equal(t, transfer.TransferID, recorded.TransferID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransfer(t *testing.T) {
	d, mock := newTestDatasource(t)
	id := model.GenerateUUIDWithSuffix("dtf")

	rows := sqlmock.NewRows([]string{"transfer_id", "transaction_id", "buyer_ref", "seller_ref", "amount", "currency",
		"transaction_fee", "gst_amount", "total_fees", "net_amount", "status", "attempts", "requeued",
		"failure_reason", "created_at", "updated_at", "completed_at"}).
		AddRow(id, "txn_1", "buyer_1", "seller_1", 15000000, "INR", 375000, 67500, 442500, 14557500,
			"confirmation", 0, false, nil, time.Now(), time.Now(), nil)

	mock.ExpectQuery("SELECT .* FROM direct_transfers WHERE transfer_id = \\$1").
		WithArgs(id).
		WillReturnRows(rows)

	transfer, err := d.GetTransfer(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, model.TransferConfirmation, transfer.Status)
	assert.Empty(t, transfer.FailureReason)
	assert.Nil(t, transfer.CompletedAt)
}

func TestGetTransfer_CompletedColumns(t *testing.T) {
	d, mock := newTestDatasource(t)
	id := model.GenerateUUIDWithSuffix("dtf")
	completedAt := time.Now()

	rows := sqlmock.NewRows([]string{"transfer_id", "transaction_id", "buyer_ref", "seller_ref", "amount", "currency",
		"transaction_fee", "gst_amount", "total_fees", "net_amount", "status", "attempts", "requeued",
		"failure_reason", "created_at", "updated_at", "completed_at"}).
		AddRow(id, "txn_1", "buyer_1", "seller_1", 15000000, "INR", 375000, 67500, 442500, 14557500,
			"complete", 1, false, "previous failure", time.Now(), time.Now(), completedAt)

	mock.ExpectQuery("SELECT .* FROM direct_transfers WHERE transfer_id = \\$1").
		WithArgs(id).
		WillReturnRows(rows)

	transfer, err := d.GetTransfer(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, "previous failure", transfer.FailureReason)
	assert.NotNil(t, transfer.CompletedAt)
}

func TestGetTransfer_NotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM direct_transfers WHERE transfer_id = \\$1").
		WithArgs("dtf_missing").
		WillReturnRows(sqlmock.NewRows([]string{"transfer_id"}))

	_, err := d.GetTransfer(context.Background(), "dtf_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestUpdateTransfer(t *testing.T) {
	d, mock := newTestDatasource(t)
	transfer := testTransfer()
	transfer.Status = model.TransferConfirmation

	mock.ExpectExec("UPDATE direct_transfers").
		WithArgs(transfer.TransferID, string(transfer.Status), transfer.Attempts, transfer.Requeued,
			transfer.FailureReason, transfer.UpdatedAt, transfer.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, d.UpdateTransfer(context.Background(), transfer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTransfer_MissingRow(t *testing.T) {
	d, mock := newTestDatasource(t)
	transfer := testTransfer()

	mock.ExpectExec("UPDATE direct_transfers").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.UpdateTransfer(context.Background(), transfer)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}
