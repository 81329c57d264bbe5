package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

// CreateEscrow persists the escrow and its milestones in one
// transaction so a partially created escrow can never be observed.
func (d Datasource) CreateEscrow(ctx context.Context, escrow *model.Escrow) (*model.Escrow, error) {
	ctx, span := otel.Tracer("escrow.database").Start(ctx, "Saving escrow to db")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO escrows(escrow_id,transaction_id,buyer_ref,seller_ref,total_amount,currency,status,transaction_fee,gst_amount,total_fees,net_amount,version,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		escrow.EscrowID, escrow.TransactionID, escrow.BuyerRef, escrow.SellerRef, escrow.TotalAmount, escrow.Currency,
		escrow.Status, escrow.Fees.TransactionFee, escrow.Fees.GSTAmount, escrow.Fees.TotalFees, escrow.Fees.NetAmount,
		escrow.Version, escrow.CreatedAt, escrow.UpdatedAt,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record escrow", err)
	}

	for _, m := range escrow.Milestones {
		evidenceJSON, err := json.Marshal(m.Evidence)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal evidence", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO milestones(milestone_id,escrow_id,name,description,amount,percentage,status,required_confirmations,current_confirmations,evidence,due_date,completed_date) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			m.MilestoneID, m.EscrowID, m.Name, m.Description, m.Amount, m.Percentage.String(), m.Status,
			m.RequiredConfirmations, m.CurrentConfirmations, evidenceJSON, m.DueDate, m.CompletedDate,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record milestone", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit escrow", err)
	}

	return escrow, nil
}

func (d Datasource) GetEscrow(ctx context.Context, id string) (*model.Escrow, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT escrow_id, transaction_id, buyer_ref, seller_ref, total_amount, currency, status, transaction_fee, gst_amount, total_fees, net_amount, version, created_at, updated_at
		FROM escrows
		WHERE escrow_id = $1
	`, id)

	escrow := &model.Escrow{}
	err := row.Scan(&escrow.EscrowID, &escrow.TransactionID, &escrow.BuyerRef, &escrow.SellerRef,
		&escrow.TotalAmount, &escrow.Currency, &escrow.Status, &escrow.Fees.TransactionFee,
		&escrow.Fees.GSTAmount, &escrow.Fees.TotalFees, &escrow.Fees.NetAmount, &escrow.Version,
		&escrow.CreatedAt, &escrow.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Escrow with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve escrow", err)
	}

	milestones, err := d.getMilestones(ctx, id)
	if err != nil {
		return nil, err
	}
	escrow.Milestones = milestones

	return escrow, nil
}

func (d Datasource) getMilestones(ctx context.Context, escrowID string) ([]*model.Milestone, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT milestone_id, escrow_id, name, description, amount, percentage, status, required_confirmations, current_confirmations, evidence, due_date, completed_date
		FROM milestones
		WHERE escrow_id = $1
		ORDER BY id
	`, escrowID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve milestones", err)
	}
	defer rows.Close()

	var milestones []*model.Milestone
	for rows.Next() {
		m := &model.Milestone{}
		var percentage string
		var evidenceJSON []byte
		var dueDate, completedDate sql.NullTime
		err := rows.Scan(&m.MilestoneID, &m.EscrowID, &m.Name, &m.Description, &m.Amount, &percentage,
			&m.Status, &m.RequiredConfirmations, &m.CurrentConfirmations, &evidenceJSON, &dueDate, &completedDate)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan milestone", err)
		}

		m.Percentage, err = decimal.NewFromString(percentage)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to parse milestone percentage", err)
		}
		if len(evidenceJSON) > 0 {
			if err := json.Unmarshal(evidenceJSON, &m.Evidence); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal evidence", err)
			}
		}
		if dueDate.Valid {
			m.DueDate = &dueDate.Time
		}
		if completedDate.Valid {
			m.CompletedDate = &completedDate.Time
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate milestones", err)
	}

	return milestones, nil
}

// UpdateEscrowStatus updates the escrow row with a compare-and-swap on
// the version column. A concurrent writer makes the swap miss, which
// surfaces as a CONFLICT the caller can re-read and retry.
func (d Datasource) UpdateEscrowStatus(ctx context.Context, escrow *model.Escrow) error {
	ctx, span := otel.Tracer("escrow.database").Start(ctx, "Updating escrow status")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE escrows
		SET status = $2, version = version + 1, updated_at = $3
		WHERE escrow_id = $1 AND version = $4
	`, escrow.EscrowID, escrow.Status, time.Now(), escrow.Version)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update escrow", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Escrow '%s' was modified concurrently, re-read and retry", escrow.EscrowID),
			map[string]interface{}{"escrow_id": escrow.EscrowID, "expected_version": escrow.Version})
	}
	escrow.Version++

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, fmt.Sprintf("escrow:%s", escrow.EscrowID))
	}

	return nil
}

func (d Datasource) UpdateMilestone(ctx context.Context, milestone *model.Milestone) error {
	ctx, span := otel.Tracer("escrow.database").Start(ctx, "Updating milestone")
	defer span.End()

	evidenceJSON, err := json.Marshal(milestone.Evidence)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal evidence", err)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE milestones
		SET status = $2, current_confirmations = $3, evidence = $4, completed_date = $5
		WHERE milestone_id = $1
	`, milestone.MilestoneID, milestone.Status, milestone.CurrentConfirmations, evidenceJSON, milestone.CompletedDate)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update milestone", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Milestone with ID '%s' not found", milestone.MilestoneID), nil)
	}

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, fmt.Sprintf("escrow:%s", milestone.EscrowID))
	}

	return nil
}
