package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

// mockCache records cache operations for invalidation checks.
type mockCache struct {
	mu      sync.Mutex
	deleted []string
}

func (m *mockCache) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) error {
	return nil
}

func (m *mockCache) Get(_ context.Context, _ string, _ interface{}) error {
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func testEscrow(t *testing.T) *model.Escrow {
	t.Helper()
	txn := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Reference:     model.GenerateUUIDWithSuffix("ref"),
		Amount:        60000000,
		Currency:      "INR",
		BuyerRef:      "buyer_1",
		SellerRef:     "seller_1",
	}
	escrow, err := model.NewEscrow(txn, []model.MilestoneSpec{
		{Name: "design", Amount: 20000000},
		{Name: "build", Amount: 40000000},
	}, model.Fees{TransactionFee: 900000, GSTAmount: 162000, TotalFees: 1062000, NetAmount: 58938000})
	assert.NoError(t, err)
	return escrow
}

func TestCreateEscrow_TransactionalInsert(t *testing.T) {
	d, mock := newTestDatasource(t)
	escrow := testEscrow(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO escrows").
		WithArgs(escrow.EscrowID, escrow.TransactionID, escrow.BuyerRef, escrow.SellerRef,
			escrow.TotalAmount, escrow.Currency, string(escrow.Status), escrow.Fees.TransactionFee,
			escrow.Fees.GSTAmount, escrow.Fees.TotalFees, escrow.Fees.NetAmount, escrow.Version,
			escrow.CreatedAt, escrow.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for _, m := range escrow.Milestones {
		mock.ExpectExec("INSERT INTO milestones").
			WithArgs(m.MilestoneID, m.EscrowID, m.Name, m.Description, m.Amount, m.Percentage.String(),
				string(m.Status), m.RequiredConfirmations, m.CurrentConfirmations, sqlmock.AnyArg(), nil, nil).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	created, err := d.CreateEscrow(context.Background(), escrow)
	assert.NoError(t, err)
	assert.Equal(t, escrow.EscrowID, created.EscrowID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEscrow_MilestoneInsertFailureRollsBack(t *testing.T) {
	d, mock := newTestDatasource(t)
	escrow := testEscrow(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO escrows").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO milestones").
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	_, err := d.CreateEscrow(context.Background(), escrow)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEscrow(t *testing.T) {
	d, mock := newTestDatasource(t)
	id := model.GenerateUUIDWithSuffix("esc")

	escrowRows := sqlmock.NewRows([]string{"escrow_id", "transaction_id", "buyer_ref", "seller_ref", "total_amount",
		"currency", "status", "transaction_fee", "gst_amount", "total_fees", "net_amount", "version", "created_at", "updated_at"}).
		AddRow(id, "txn_1", "buyer_1", "seller_1", 60000000, "INR", "active", 900000, 162000, 1062000, 58938000, 3, time.Now(), time.Now())

	milestoneRows := sqlmock.NewRows([]string{"milestone_id", "escrow_id", "name", "description", "amount", "percentage",
		"status", "required_confirmations", "current_confirmations", "evidence", "due_date", "completed_date"}).
		AddRow("mls_1", id, "design", "", 20000000, "33.3333", "approved", 1, 1, []byte(`["doc://a"]`), nil, time.Now()).
		AddRow("mls_2", id, "build", "", 40000000, "66.6667", "in_progress", 2, 1, []byte(`[]`), time.Now().Add(24*time.Hour), nil)

	mock.ExpectQuery("SELECT .* FROM escrows WHERE escrow_id = \\$1").
		WithArgs(id).
		WillReturnRows(escrowRows)
	mock.ExpectQuery("SELECT .* FROM milestones WHERE escrow_id = \\$1").
		WithArgs(id).
		WillReturnRows(milestoneRows)

	escrow, err := d.GetEscrow(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, model.EscrowActive, escrow.Status)
	assert.Equal(t, int64(3), escrow.Version)
	assert.Len(t, escrow.Milestones, 2)
	assert.Equal(t, []string{"doc://a"}, escrow.Milestones[0].Evidence)
	assert.Equal(t, "33.3333", escrow.Milestones[0].Percentage.String())
	assert.NotNil(t, escrow.Milestones[0].CompletedDate)
	assert.NotNil(t, escrow.Milestones[1].DueDate)
}

func TestGetEscrow_NotFound(t *testing.T) {
	d, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT .* FROM escrows WHERE escrow_id = \\$1").
		WithArgs("esc_missing").
		WillReturnRows(sqlmock.NewRows([]string{"escrow_id"}))

	_, err := d.GetEscrow(context.Background(), "esc_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestUpdateEscrowStatus_CompareAndSwap(t *testing.T) {
	d, mock := newTestDatasource(t)
	escrow := testEscrow(t)
	assert.NoError(t, escrow.Fund())

	mock.ExpectExec("UPDATE escrows").
		WithArgs(escrow.EscrowID, string(escrow.Status), sqlmock.AnyArg(), escrow.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, d.UpdateEscrowStatus(context.Background(), escrow))
	assert.Equal(t, int64(2), escrow.Version, "version advances with the row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEscrowStatus_ConcurrentWriterConflict(t *testing.T) {
	d, mock := newTestDatasource(t)
	escrow := testEscrow(t)

	// The swap misses when another writer bumped the version first.
	mock.ExpectExec("UPDATE escrows").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.UpdateEscrowStatus(context.Background(), escrow)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	assert.Equal(t, int64(1), escrow.Version, "version unchanged on conflict")
}

func TestUpdateEscrowStatus_InvalidatesCache(t *testing.T) {
	d, mock := newTestDatasource(t)
	cache := &mockCache{}
	d.Cache = cache
	escrow := testEscrow(t)

	mock.ExpectExec("UPDATE escrows").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, d.UpdateEscrowStatus(context.Background(), escrow))
	assert.Equal(t, []string{fmt.Sprintf("escrow:%s", escrow.EscrowID)}, cache.deleted)
}

func TestUpdateMilestone(t *testing.T) {
	d, mock := newTestDatasource(t)
	escrow := testEscrow(t)
	milestone := escrow.Milestones[0]
	milestone.Status = model.MilestoneInProgress
	milestone.CurrentConfirmations = 1
	milestone.Evidence = []string{"doc://a"}

	mock.ExpectExec("UPDATE milestones").
		WithArgs(milestone.MilestoneID, string(milestone.Status), milestone.CurrentConfirmations,
			[]byte(`["doc://a"]`), milestone.CompletedDate).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, d.UpdateMilestone(context.Background(), milestone))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMilestone_MissingRow(t *testing.T) {
	d, mock := newTestDatasource(t)
	escrow := testEscrow(t)

	mock.ExpectExec("UPDATE milestones").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.UpdateMilestone(context.Background(), escrow.Milestones[0])
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}
