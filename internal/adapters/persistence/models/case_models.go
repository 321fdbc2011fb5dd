package models

import (
	"time"

	"casedesk/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ============================================================
// Case aggregates (one row per aggregate, written with CAS)
// ============================================================

// CreditCase represents credit_cases table
type CreditCase struct {
	ID          string                      `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID    string                      `gorm:"type:char(36);not null;uniqueIndex:idx_credit_tenant_number,priority:1" json:"tenant_id"`
	CaseNumber  string                      `gorm:"size:40;not null;uniqueIndex:idx_credit_tenant_number,priority:2" json:"case_number"`
	Title       string                      `gorm:"size:200" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Status      string                      `gorm:"size:32;not null;index" json:"status"`
	Priority    string                      `gorm:"size:16;not null;default:'medium'" json:"priority"`
	AssignedTo  *string                     `gorm:"type:char(36);index" json:"assigned_to"`
	Documents   datatypes.JSONSlice[string] `json:"documents"`
	DebtAmount  decimal.Decimal             `gorm:"type:decimal(15,2);not null" json:"debt_amount"`
	DebtorName  string                      `gorm:"size:200;not null" json:"debtor_name"`
	Version     int64                       `gorm:"not null;default:1" json:"version"`

	// Escalation sub-record, flattened so the unlinked state is queryable
	EscalationLegalCaseID *string             `gorm:"type:char(36)" json:"escalation_legal_case_id"`
	EscalationDate        *time.Time          `json:"escalation_date"`
	EscalationFee         decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"escalation_fee"`
	EscalationFeeStatus   *string             `gorm:"size:16" json:"escalation_fee_status"`
	EscalationPrevStatus  *string             `gorm:"size:32" json:"escalation_prev_status"`
	EscalationAdvocateID  *string             `gorm:"type:char(36)" json:"escalation_advocate_id"`
	EscalationFilingFee   decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"escalation_filing_fee"`

	CreatedAt time.Time `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
}

func (CreditCase) TableName() string {
	return "credit_cases"
}

// LegalCase represents legal_cases table
type LegalCase struct {
	ID          string                      `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID    string                      `gorm:"type:char(36);not null;uniqueIndex:idx_legal_tenant_number,priority:1" json:"tenant_id"`
	CaseNumber  string                      `gorm:"size:40;not null;uniqueIndex:idx_legal_tenant_number,priority:2" json:"case_number"`
	Title       string                      `gorm:"size:200" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Status      string                      `gorm:"size:32;not null;index" json:"status"`
	Priority    string                      `gorm:"size:16;not null;default:'medium'" json:"priority"`
	AssignedTo  *string                     `gorm:"type:char(36);index" json:"assigned_to"`
	Documents   datatypes.JSONSlice[string] `json:"documents"`
	CaseType    string                      `gorm:"size:64" json:"case_type"`
	Version     int64                       `gorm:"not null;default:1" json:"version"`

	FilingFeeAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"filing_fee_amount"`
	FilingFeePaid   bool            `gorm:"not null;default:false" json:"filing_fee_paid"`
	FilingFeePaidAt *time.Time      `json:"filing_fee_paid_at"`

	// Back-reference of the escalation link; EscalationKey makes creation idempotent
	EscalatedFromCreditCaseID *string             `gorm:"type:char(36);index" json:"escalated_from_credit_case_id"`
	EscalatedFromDate         *time.Time          `json:"escalated_from_date"`
	EscalationFee             decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"escalation_fee"`
	EscalationKey             *string             `gorm:"size:120;uniqueIndex" json:"escalation_key"`

	Enrichment datatypes.JSONType[domain.LegalEnrichment] `json:"enrichment"`

	CreatedAt time.Time `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
}

func (LegalCase) TableName() string {
	return "legal_cases"
}

// CaseTransition is the audit trail of transition attempts
type CaseTransition struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID   string    `gorm:"type:char(36);not null;index" json:"tenant_id"`
	CaseID     string    `gorm:"type:char(36);not null;index" json:"case_id"`
	CaseKind   string    `gorm:"size:16;not null" json:"case_kind"`
	FromStatus string    `gorm:"size:32" json:"from_status"`
	ToStatus   string    `gorm:"size:32" json:"to_status"`
	ActorID    string    `gorm:"type:char(36);not null" json:"actor_id"`
	ActorRole  string    `gorm:"size:20;not null" json:"actor_role"`
	Result     string    `gorm:"size:16;not null" json:"result"`
	Reason     string    `gorm:"size:32" json:"reason"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;not null;index" json:"created_at"`
}

func (CaseTransition) TableName() string {
	return "case_transitions"
}

// CaseComment represents case_comments table
type CaseComment struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID  string    `gorm:"type:char(36);not null;index" json:"tenant_id"`
	CaseID    string    `gorm:"type:char(36);not null;index" json:"case_id"`
	CaseKind  string    `gorm:"size:16;not null" json:"case_kind"`
	AuthorID  string    `gorm:"type:char(36);not null" json:"author_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;not null" json:"created_at"`
}

func (CaseComment) TableName() string {
	return "case_comments"
}

// User represents the firm staff directory
type User struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID  string    `gorm:"type:char(36);not null;uniqueIndex:idx_users_tenant_email,priority:1" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null;uniqueIndex:idx_users_tenant_email,priority:2" json:"email"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&CreditCase{},
		&LegalCase{},
		&CaseTransition{},
		&CaseComment{},
	)
}
