package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role represents a staff role inside a law firm
type Role string

const (
	RoleFirmAdmin     Role = "firm_admin"
	RoleCreditHead    Role = "credit_head"
	RoleDebtCollector Role = "debt_collector"
	RoleLegalHead     Role = "legal_head"
	RoleAdvocate      Role = "advocate"
)

// Valid reports whether r belongs to the closed role set
func (r Role) Valid() bool {
	switch r {
	case RoleFirmAdmin, RoleCreditHead, RoleDebtCollector, RoleLegalHead, RoleAdvocate:
		return true
	}
	return false
}

// CaseKind distinguishes the two case lineages
type CaseKind string

const (
	KindCredit CaseKind = "credit"
	KindLegal  CaseKind = "legal"
)

// Valid reports whether k is a known case kind
func (k CaseKind) Valid() bool {
	return k == KindCredit || k == KindLegal
}

// HeadRole returns the department head role with blanket rights over cases of this kind
func (k CaseKind) HeadRole() Role {
	if k == KindLegal {
		return RoleLegalHead
	}
	return RoleCreditHead
}

// StaffRole returns the day-to-day handler role for cases of this kind
func (k CaseKind) StaffRole() Role {
	if k == KindLegal {
		return RoleAdvocate
	}
	return RoleDebtCollector
}

// Status is a case status; the legal set depends on the case kind
type Status string

const (
	// Credit lineage
	StatusNew              Status = "new"
	StatusInProgress       Status = "in_progress"
	StatusFollowUpRequired Status = "follow_up_required"
	StatusEscalatedToLegal Status = "escalated_to_legal"

	// Legal lineage
	StatusPendingAssignment Status = "pending_assignment"
	StatusFiled             Status = "filed"
	StatusUnderReview       Status = "under_review"
	StatusCourtProceedings  Status = "court_proceedings"
	StatusSettlement        Status = "settlement"

	// Shared
	StatusAssigned Status = "assigned"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// Priority of a case
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Actor is the authenticated caller of a core operation
type Actor struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id"`
}

// Case is the shape shared by CreditCase and LegalCase
type Case struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	CaseNumber  string    `json:"case_number"`
	Kind        CaseKind  `json:"case_kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	AssignedTo  string    `json:"assigned_to,omitempty"` // empty when unassigned
	Documents   []string  `json:"documents"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Header exposes the shared case fields of an aggregate
func (c *Case) Header() *Case { return c }

// Record is implemented by both case aggregates
type Record interface {
	Header() *Case
}

// HasDocument reports whether documentID is already attached
func (c *Case) HasDocument(documentID string) bool {
	for _, d := range c.Documents {
		if d == documentID {
			return true
		}
	}
	return false
}

// Touch advances UpdatedAt to now, keeping it strictly monotonic
func (c *Case) Touch(now time.Time) {
	if !now.After(c.UpdatedAt) {
		now = c.UpdatedAt.Add(time.Millisecond)
	}
	c.UpdatedAt = now
}

// FeeStatus is the payment state of an escalation fee
type FeeStatus string

const (
	FeePending   FeeStatus = "pending"
	FeeConfirmed FeeStatus = "confirmed"
)

// Escalation is the credit-side half of the escalation link.
// LegalCaseID stays empty between the intent write and the link write.
type Escalation struct {
	LegalCaseID     string          `json:"legal_case_id,omitempty"`
	EscalationDate  time.Time       `json:"escalation_date"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
	FeeStatus       FeeStatus       `json:"fee_status"`
	PreviousStatus  Status          `json:"previous_status"`
	AdvocateID      string          `json:"advocate_id,omitempty"`
	FilingFeeAmount decimal.Decimal `json:"filing_fee_amount"`
}

// Linked reports whether the legal side has been recorded
func (e *Escalation) Linked() bool {
	return e != nil && e.LegalCaseID != ""
}

// CreditCase is a debt-collection case
type CreditCase struct {
	Case
	DebtAmount decimal.Decimal `json:"debt_amount"`
	DebtorName string          `json:"debtor_name"`
	Escalation *Escalation     `json:"escalation,omitempty"`
}

// IsAlreadyEscalated reports whether the case carries a linked escalation
func (c *CreditCase) IsAlreadyEscalated() bool {
	return c.Escalation.Linked()
}

// IsEscalationUnlinked reports the degraded "escalating, no legal case yet" state
func (c *CreditCase) IsEscalationUnlinked() bool {
	return c.Status == StatusEscalatedToLegal && !c.Escalation.Linked()
}

// FilingFee of a legal case
type FilingFee struct {
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
	PaidAt *time.Time      `json:"paid_at,omitempty"`
}

// EscalatedFrom is the legal-side back-reference of the escalation link
type EscalatedFrom struct {
	CreditCaseID   string          `json:"credit_case_id"`
	EscalationDate time.Time       `json:"escalation_date"`
	EscalationFee  decimal.Decimal `json:"escalation_fee"`
}

// Key returns the idempotency key of the escalation that spawned the case
func (e *EscalatedFrom) Key() string {
	return EscalationKey(e.CreditCaseID, e.EscalationDate)
}

// LegalEnrichment is optional court metadata attached to a legal case
type LegalEnrichment struct {
	CourtName       string `json:"court_name,omitempty"`
	CourtCaseNumber string `json:"court_case_number,omitempty"`
	OpposingParty   string `json:"opposing_party,omitempty"`
	ClientIdentity  string `json:"client_identity,omitempty"`
}

// Merge overwrites fields that are non-empty in other
func (e LegalEnrichment) Merge(other LegalEnrichment) LegalEnrichment {
	if other.CourtName != "" {
		e.CourtName = other.CourtName
	}
	if other.CourtCaseNumber != "" {
		e.CourtCaseNumber = other.CourtCaseNumber
	}
	if other.OpposingParty != "" {
		e.OpposingParty = other.OpposingParty
	}
	if other.ClientIdentity != "" {
		e.ClientIdentity = other.ClientIdentity
	}
	return e
}

// LegalCase is a case handled by the legal department
type LegalCase struct {
	Case
	CaseType      string          `json:"case_type"`
	FilingFee     FilingFee       `json:"filing_fee"`
	EscalatedFrom *EscalatedFrom  `json:"escalated_from,omitempty"`
	Enrichment    LegalEnrichment `json:"enrichment"`
}

// EscalationKey identifies one escalation intent of a credit case
func EscalationKey(creditCaseID string, escalationDate time.Time) string {
	return fmt.Sprintf("%s@%s", creditCaseID, escalationDate.UTC().Format(time.RFC3339Nano))
}

// TransitionResult is the outcome recorded for a transition attempt
type TransitionResult string

const (
	ResultApplied  TransitionResult = "applied"
	ResultRejected TransitionResult = "rejected"
)

// TransitionRecord is the audit entry of one transition attempt
type TransitionRecord struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	CaseID     string           `json:"case_id"`
	CaseKind   CaseKind         `json:"case_kind"`
	FromStatus Status           `json:"from_status"`
	ToStatus   Status           `json:"to_status"`
	ActorID    string           `json:"actor_id"`
	ActorRole  Role             `json:"actor_role"`
	Timestamp  time.Time        `json:"timestamp"`
	Result     TransitionResult `json:"result"`
	Reason     RejectionReason  `json:"reason,omitempty"`
}

// User is a member of a firm's staff directory
type User struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment on a case
type Comment struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CaseID    string    `json:"case_id"`
	CaseKind  CaseKind  `json:"case_kind"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Revision is the compare-and-set guard of a stored case
type Revision struct {
	Version int64
	Status  Status
}

// RevisionOf captures the guard of c as loaded
func RevisionOf(c *Case) Revision {
	return Revision{Version: c.Version, Status: c.Status}
}
