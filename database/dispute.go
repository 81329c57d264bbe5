package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/model"
)

// pqUniqueViolation is the postgres error code raised when the
// one_open_dispute_per_escrow partial index rejects a second open
// dispute.
const pqUniqueViolation = "23505"

func (d Datasource) RecordDispute(ctx context.Context, dispute *model.Dispute) (*model.Dispute, error) {
	ctx, span := otel.Tracer("dispute.database").Start(ctx, "Saving dispute to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO disputes(dispute_id,escrow_id,milestone_id,raised_by,title,description,status,outcome,note,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		dispute.DisputeID, dispute.EscrowID, dispute.MilestoneID, dispute.RaisedBy, dispute.Title,
		dispute.Description, dispute.Status, dispute.Outcome, dispute.Note, dispute.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return nil, apierror.NewAPIError(apierror.ErrDisputeAlreadyOpen,
				fmt.Sprintf("Escrow '%s' already has an open dispute", dispute.EscrowID),
				map[string]interface{}{"escrow_id": dispute.EscrowID})
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record dispute", err)
	}

	return dispute, nil
}

func (d Datasource) GetDispute(ctx context.Context, id string) (*model.Dispute, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT dispute_id, escrow_id, milestone_id, raised_by, title, description, status, outcome, note, created_at, resolved_at
		FROM disputes
		WHERE dispute_id = $1
	`, id)

	dispute, err := scanDispute(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Dispute with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve dispute", err)
	}

	return dispute, nil
}

// GetOpenDispute fetches the escrow's open dispute if one exists.
// sql.ErrNoRows maps to NOT_FOUND, which callers treat as "no open
// dispute".
func (d Datasource) GetOpenDispute(ctx context.Context, escrowID string) (*model.Dispute, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT dispute_id, escrow_id, milestone_id, raised_by, title, description, status, outcome, note, created_at, resolved_at
		FROM disputes
		WHERE escrow_id = $1 AND status = 'open'
	`, escrowID)

	dispute, err := scanDispute(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("No open dispute for escrow '%s'", escrowID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve open dispute", err)
	}

	return dispute, nil
}

func scanDispute(row *sql.Row) (*model.Dispute, error) {
	dispute := &model.Dispute{}
	var milestoneID, outcome, note sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&dispute.DisputeID, &dispute.EscrowID, &milestoneID, &dispute.RaisedBy, &dispute.Title,
		&dispute.Description, &dispute.Status, &outcome, &note, &dispute.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if milestoneID.Valid {
		dispute.MilestoneID = milestoneID.String
	}
	if outcome.Valid {
		dispute.Outcome = model.DisputeOutcome(outcome.String)
	}
	if note.Valid {
		dispute.Note = note.String
	}
	if resolvedAt.Valid {
		dispute.ResolvedAt = &resolvedAt.Time
	}

	return dispute, nil
}

func (d Datasource) UpdateDispute(ctx context.Context, dispute *model.Dispute) error {
	ctx, span := otel.Tracer("dispute.database").Start(ctx, "Updating dispute")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE disputes
		SET status = $2, outcome = $3, note = $4, resolved_at = $5
		WHERE dispute_id = $1
	`, dispute.DisputeID, dispute.Status, dispute.Outcome, dispute.Note, dispute.ResolvedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update dispute", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Dispute with ID '%s' not found", dispute.DisputeID), nil)
	}

	return nil
}
