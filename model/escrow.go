package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bell24h/tijori/internal/apierror"
)

type EscrowStatus string

const (
	EscrowPending   EscrowStatus = "pending"
	EscrowActive    EscrowStatus = "active"
	EscrowCompleted EscrowStatus = "completed"
	EscrowDisputed  EscrowStatus = "disputed"
	EscrowCancelled EscrowStatus = "cancelled"
)

type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneApproved   MilestoneStatus = "approved"
)

// hundred is the percentage total milestone shares must add up to.
var hundred = decimal.NewFromInt(100)

// percentTolerance is the accepted rounding slack when milestone shares
// are expressed as percentages: +/-0.01%.
var percentTolerance = decimal.RequireFromString("0.01")

// Escrow is a holding contract for amounts at or above the settlement
// threshold, decomposed into independently confirmable milestones.
// Version increments on every persisted mutation and backs the
// optimistic compare-and-swap in the store.
type Escrow struct {
	ID            int64        `json:"-"`
	EscrowID      string       `json:"escrow_id"`
	TransactionID string       `json:"transaction_id"`
	BuyerRef      string       `json:"buyer_ref"`
	SellerRef     string       `json:"seller_ref"`
	TotalAmount   int64        `json:"total_amount"`
	Currency      string       `json:"currency"`
	Status        EscrowStatus `json:"status"`
	Fees          Fees         `json:"fees"`
	Milestones    []*Milestone `json:"milestones"`
	Version       int64        `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Milestone is a discrete portion of an escrow. Confirmations
// accumulate until the required quorum is met, at which point the
// milestone auto-completes and becomes eligible for approval.
type Milestone struct {
	ID                    int64           `json:"-"`
	MilestoneID           string          `json:"milestone_id"`
	EscrowID              string          `json:"escrow_id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Amount                int64           `json:"amount"`
	Percentage            decimal.Decimal `json:"percentage"`
	Status                MilestoneStatus `json:"status"`
	RequiredConfirmations int             `json:"required_confirmations"`
	CurrentConfirmations  int             `json:"current_confirmations"`
	Evidence              []string        `json:"evidence,omitempty"`
	DueDate               *time.Time      `json:"due_date,omitempty"`
	CompletedDate         *time.Time      `json:"completed_date,omitempty"`
}

// MilestoneSpec describes a milestone at escrow creation time. Amount
// is authoritative when set; Percentage alone is accepted and amounts
// are derived, with the rounding remainder assigned to the last
// milestone so the sum invariant holds exactly.
type MilestoneSpec struct {
	Name                  string
	Description           string
	Amount                int64
	Percentage            decimal.Decimal
	RequiredConfirmations int
	DueDate               *time.Time
}

func invalidMilestoneTransition(m *Milestone, attempted string) error {
	return apierror.NewAPIError(apierror.ErrInvalidMilestoneTransition,
		fmt.Sprintf("cannot %s milestone in status '%s'", attempted, m.Status),
		map[string]interface{}{
			"milestone_id": m.MilestoneID,
			"status":       m.Status,
			"attempted":    attempted,
		})
}

func invalidEscrowState(e *Escrow, attempted string) error {
	return apierror.NewAPIError(apierror.ErrInvalidEscrowState,
		fmt.Sprintf("cannot %s escrow in status '%s'", attempted, e.Status),
		map[string]interface{}{
			"escrow_id": e.EscrowID,
			"status":    e.Status,
			"attempted": attempted,
		})
}

// NewEscrow builds a pending escrow from a routed transaction and its
// milestone specs, enforcing the sum invariant before anything is
// persisted.
func NewEscrow(transaction *Transaction, specs []MilestoneSpec, fees Fees) (*Escrow, error) {
	if err := transaction.Validate(); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "escrow requires at least one milestone", nil)
	}

	amounts, percentages, err := resolveMilestoneShares(transaction.Amount, specs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	escrow := &Escrow{
		EscrowID:      GenerateUUIDWithSuffix("esc"),
		TransactionID: transaction.TransactionID,
		BuyerRef:      transaction.BuyerRef,
		SellerRef:     transaction.SellerRef,
		TotalAmount:   transaction.Amount,
		Currency:      transaction.Currency,
		Status:        EscrowPending,
		Fees:          fees,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for i, spec := range specs {
		required := spec.RequiredConfirmations
		if required < 1 {
			required = 1
		}
		escrow.Milestones = append(escrow.Milestones, &Milestone{
			MilestoneID:           GenerateUUIDWithSuffix("mls"),
			EscrowID:              escrow.EscrowID,
			Name:                  spec.Name,
			Description:           spec.Description,
			Amount:                amounts[i],
			Percentage:            percentages[i],
			Status:                MilestonePending,
			RequiredConfirmations: required,
			DueDate:               spec.DueDate,
		})
	}

	return escrow, nil
}

// resolveMilestoneShares validates the specs against the escrow total
// and returns the authoritative amount and derived percentage for each
// milestone. Amounts must sum exactly; percentages tolerate +/-0.01%.
func resolveMilestoneShares(totalAmount int64, specs []MilestoneSpec) ([]int64, []decimal.Decimal, error) {
	amounts := make([]int64, len(specs))
	percentages := make([]decimal.Decimal, len(specs))
	total := decimal.NewFromInt(totalAmount)

	byAmount := specs[0].Amount > 0
	for _, spec := range specs {
		if (spec.Amount > 0) != byAmount {
			return nil, nil, apierror.NewAPIError(apierror.ErrInvalidInput, "milestones must be specified uniformly by amount or by percentage", nil)
		}
	}

	if byAmount {
		var sum int64
		for i, spec := range specs {
			amounts[i] = spec.Amount
			sum += spec.Amount
			percentages[i] = decimal.NewFromInt(spec.Amount).Div(total).Mul(hundred).Round(4)
		}
		if sum != totalAmount {
			return nil, nil, apierror.NewAPIError(apierror.ErrInvalidInput, "milestone amounts must sum to the escrow total", map[string]interface{}{
				"total_amount":  totalAmount,
				"milestone_sum": sum,
			})
		}
		return amounts, percentages, nil
	}

	sum := decimal.Zero
	for _, spec := range specs {
		if spec.Percentage.LessThanOrEqual(decimal.Zero) {
			return nil, nil, apierror.NewAPIError(apierror.ErrInvalidInput, "milestone percentage must be positive", nil)
		}
		sum = sum.Add(spec.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return nil, nil, apierror.NewAPIError(apierror.ErrInvalidInput, "milestone percentages must sum to 100", map[string]interface{}{
			"percentage_sum": sum.String(),
		})
	}

	var allocated int64
	for i, spec := range specs {
		percentages[i] = spec.Percentage
		if i == len(specs)-1 {
			// Rounding remainder lands on the last milestone so the
			// amounts still sum exactly to the escrow total.
			amounts[i] = totalAmount - allocated
			continue
		}
		amounts[i] = total.Mul(spec.Percentage).Div(hundred).Round(0).IntPart()
		allocated += amounts[i]
	}
	return amounts, percentages, nil
}

// Fund transitions a pending escrow to active.
func (e *Escrow) Fund() error {
	if e.Status != EscrowPending {
		return invalidEscrowState(e, "fund")
	}
	e.Status = EscrowActive
	e.UpdatedAt = time.Now()
	return nil
}

// MarkDisputed freezes an active escrow while a dispute is open.
func (e *Escrow) MarkDisputed() error {
	if e.Status != EscrowActive {
		return invalidEscrowState(e, "dispute")
	}
	e.Status = EscrowDisputed
	e.UpdatedAt = time.Now()
	return nil
}

// ResumeFromDispute returns a disputed escrow to active.
func (e *Escrow) ResumeFromDispute() error {
	if e.Status != EscrowDisputed {
		return invalidEscrowState(e, "resume")
	}
	e.Status = EscrowActive
	e.UpdatedAt = time.Now()
	return nil
}

// Cancel terminates a disputed escrow. Refunding the held funds is the
// external ledger's responsibility, triggered by the caller.
func (e *Escrow) Cancel() error {
	if e.Status != EscrowDisputed {
		return invalidEscrowState(e, "cancel")
	}
	e.Status = EscrowCancelled
	e.UpdatedAt = time.Now()
	return nil
}

// OutstandingMilestones lists the ids of milestones not yet approved.
func (e *Escrow) OutstandingMilestones() []string {
	var outstanding []string
	for _, m := range e.Milestones {
		if m.Status != MilestoneApproved {
			outstanding = append(outstanding, m.MilestoneID)
		}
	}
	return outstanding
}

// CanRelease reports whether the escrow is releasable right now. The
// caller checks this before moving funds so a failed ledger call never
// leaves the escrow half-transitioned.
func (e *Escrow) CanRelease() error {
	if e.Status != EscrowActive {
		return invalidEscrowState(e, "release")
	}
	if outstanding := e.OutstandingMilestones(); len(outstanding) > 0 {
		return apierror.NewAPIError(apierror.ErrEscrowNotReleasable, "escrow has unapproved milestones", map[string]interface{}{
			"escrow_id":              e.EscrowID,
			"outstanding_milestones": outstanding,
		})
	}
	return nil
}

// Release completes an active escrow once every milestone is approved.
// The ledger movement itself is orchestrated by the caller; this only
// guards and applies the state transition.
func (e *Escrow) Release() error {
	if err := e.CanRelease(); err != nil {
		return err
	}
	e.Status = EscrowCompleted
	e.UpdatedAt = time.Now()
	return nil
}

// Progress reports the share of milestones that are completed or
// approved, floored to an integer percent.
func (e *Escrow) Progress() int {
	if len(e.Milestones) == 0 {
		return 0
	}
	done := 0
	for _, m := range e.Milestones {
		if m.Status == MilestoneCompleted || m.Status == MilestoneApproved {
			done++
		}
	}
	return done * 100 / len(e.Milestones)
}

// Milestone returns the owned milestone with the given id.
func (e *Escrow) Milestone(milestoneID string) (*Milestone, error) {
	for _, m := range e.Milestones {
		if m.MilestoneID == milestoneID {
			return m, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("milestone '%s' not found in escrow '%s'", milestoneID, e.EscrowID), nil)
}

// Start moves a pending milestone to in_progress.
func (m *Milestone) Start() error {
	if m.Status != MilestonePending {
		return invalidMilestoneTransition(m, "start")
	}
	m.Status = MilestoneInProgress
	return nil
}

// RecordConfirmation counts one confirmation toward the quorum and
// appends the evidence reference when present. Confirmations past the
// quorum are idempotent no-ops. Returns true when this confirmation
// completed the milestone.
func (m *Milestone) RecordConfirmation(evidenceRef string) (bool, error) {
	if m.Status == MilestoneCompleted || m.Status == MilestoneApproved {
		if m.CurrentConfirmations >= m.RequiredConfirmations {
			return false, nil
		}
		return false, invalidMilestoneTransition(m, "confirm")
	}
	if m.Status != MilestoneInProgress {
		return false, invalidMilestoneTransition(m, "confirm")
	}

	if m.CurrentConfirmations < m.RequiredConfirmations {
		m.CurrentConfirmations++
	}
	if evidenceRef != "" {
		m.Evidence = append(m.Evidence, evidenceRef)
	}

	if m.CurrentConfirmations >= m.RequiredConfirmations {
		now := time.Now()
		m.Status = MilestoneCompleted
		m.CompletedDate = &now
		return true, nil
	}
	return false, nil
}

// Approve finalizes a completed milestone. Approval is the only
// transition that unlocks the milestone's share for fund release.
func (m *Milestone) Approve() error {
	if m.Status != MilestoneCompleted {
		return invalidMilestoneTransition(m, "approve")
	}
	if m.CurrentConfirmations < m.RequiredConfirmations {
		return invalidMilestoneTransition(m, "approve")
	}
	m.Status = MilestoneApproved
	return nil
}
