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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/bell24h/tijori/model"
)

func amountOrPercentageValidation(s *MilestoneSpec) validation.RuleFunc {
	return func(value interface{}) error {
		if (s.Amount == 0 && s.Percentage == "") || (s.Amount != 0 && s.Percentage != "") {
			return errors.New("either amount or percentage is required, not both")
		}
		return nil
	}
}

func validateDateFormat(format, value string) error {
	_, err := time.Parse(format, value)
	if err != nil {
		return errors.New("please format the due date as 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2026-04-22T15:28:03+00:00)")
	}
	return nil
}

func (t *SubmitTransaction) ValidateSubmitTransaction() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Amount, validation.Required, validation.Min(1)),
		validation.Field(&t.Currency, validation.Required),
		validation.Field(&t.Reference, validation.Required),
		validation.Field(&t.BuyerRef, validation.Required),
		validation.Field(&t.SellerRef, validation.Required, validation.By(func(value interface{}) error {
			if t.SellerRef == t.BuyerRef {
				return errors.New("buyer_ref and seller_ref must be different")
			}
			return nil
		})),
	)
	if err != nil {
		return err
	}
	for i := range t.Milestones {
		if err := t.Milestones[i].ValidateMilestoneSpec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *MilestoneSpec) ValidateMilestoneSpec() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Amount, validation.Min(0), validation.By(amountOrPercentageValidation(s))),
		validation.Field(&s.Percentage, validation.When(s.Percentage != "", validation.By(func(value interface{}) error {
			p, err := decimal.NewFromString(s.Percentage)
			if err != nil {
				return errors.New("percentage must be a decimal string")
			}
			if p.LessThanOrEqual(decimal.Zero) {
				return errors.New("percentage must be positive")
			}
			return nil
		}))),
		validation.Field(&s.RequiredConfirmations, validation.Min(0)),
		validation.Field(&s.DueDate, validation.When(s.DueDate != "", validation.By(func(value interface{}) error {
			dateStr, ok := value.(string)
			if !ok {
				return errors.New("invalid type for due date")
			}
			return validateDateFormat("2006-01-02T15:04:05Z07:00", dateStr)
		}))),
	)
}

func (q *FeeQuote) ValidateFeeQuote() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Amount, validation.Required, validation.Min(1)),
		validation.Field(&q.Tier, validation.Required, validation.In("free", "pro", "enterprise")),
		validation.Field(&q.Path, validation.Required, validation.In("direct", "escrow")),
	)
}

func (d *OpenDispute) ValidateOpenDispute() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.RaisedBy, validation.Required),
		validation.Field(&d.Title, validation.Required),
	)
}

func (d *ResolveDispute) ValidateResolveDispute() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Outcome, validation.Required, validation.In("resume", "cancel")),
	)
}

// ToTransaction converts a submit request into a settlement
// transaction.
func (t *SubmitTransaction) ToTransaction() *model.Transaction {
	return &model.Transaction{
		Amount:    t.Amount,
		Currency:  t.Currency,
		Reference: t.Reference,
		BuyerRef:  t.BuyerRef,
		SellerRef: t.SellerRef,
		MetaData:  t.MetaData,
	}
}

// ToMilestoneSpecs converts request milestones into settlement
// milestone specs. Validation has already confirmed the percentage
// strings and due dates parse.
func (t *SubmitTransaction) ToMilestoneSpecs() []model.MilestoneSpec {
	specs := make([]model.MilestoneSpec, 0, len(t.Milestones))
	for _, m := range t.Milestones {
		spec := model.MilestoneSpec{
			Name:                  m.Name,
			Description:           m.Description,
			Amount:                m.Amount,
			RequiredConfirmations: m.RequiredConfirmations,
		}
		if m.Percentage != "" {
			spec.Percentage, _ = decimal.NewFromString(m.Percentage)
		}
		if m.DueDate != "" {
			if due, err := time.Parse("2006-01-02T15:04:05Z07:00", m.DueDate); err == nil {
				spec.DueDate = &due
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
