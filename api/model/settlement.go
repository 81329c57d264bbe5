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

// SubmitTransaction is the request body for submitting a transaction
// for settlement. Amount is in minor units (paise). Milestones are
// only honored on the escrow path.
type SubmitTransaction struct {
	Amount     int64                  `json:"amount"`
	Currency   string                 `json:"currency"`
	Reference  string                 `json:"reference"`
	BuyerRef   string                 `json:"buyer_ref"`
	SellerRef  string                 `json:"seller_ref"`
	Milestones []MilestoneSpec        `json:"milestones,omitempty"`
	MetaData   map[string]interface{} `json:"meta_data,omitempty"`
}

// MilestoneSpec describes one milestone in a submit request. Either
// amount or percentage is set, uniformly across the list.
type MilestoneSpec struct {
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	Amount                int64  `json:"amount,omitempty"`
	Percentage            string `json:"percentage,omitempty"`
	RequiredConfirmations int    `json:"required_confirmations,omitempty"`
	DueDate               string `json:"due_date,omitempty"`
}

// FeeQuote is the request body for a fee preview.
type FeeQuote struct {
	Amount   int64  `json:"amount"`
	Tier     string `json:"tier"`
	Path     string `json:"path"`
	Currency string `json:"currency,omitempty"`
}

// RecordConfirmation is the request body for confirming a milestone.
type RecordConfirmation struct {
	EvidenceRef string `json:"evidence_ref,omitempty"`
}

// OpenDispute is the request body for opening a dispute against an
// escrow.
type OpenDispute struct {
	MilestoneID string `json:"milestone_id,omitempty"`
	RaisedBy    string `json:"raised_by"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ResolveDispute is the request body for resolving a dispute. Outcome
// is "resume" or "cancel".
type ResolveDispute struct {
	Outcome string `json:"outcome"`
	Note    string `json:"note,omitempty"`
}
