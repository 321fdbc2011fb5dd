package models

import (
	"casedesk/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func docsOf(docs []string) datatypes.JSONSlice[string] {
	out := make([]string, len(docs))
	copy(out, docs)
	return datatypes.NewJSONSlice(out)
}

func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NewCreditCase maps a domain credit case onto its row
func NewCreditCase(c *domain.CreditCase) *CreditCase {
	m := &CreditCase{
		ID:          c.ID,
		TenantID:    c.TenantID,
		CaseNumber:  c.CaseNumber,
		Title:       c.Title,
		Description: c.Description,
		Status:      string(c.Status),
		Priority:    string(c.Priority),
		AssignedTo:  strPtr(c.AssignedTo),
		Documents:   docsOf(c.Documents),
		DebtAmount:  c.DebtAmount,
		DebtorName:  c.DebtorName,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if e := c.Escalation; e != nil {
		date := e.EscalationDate
		feeStatus := string(e.FeeStatus)
		prev := string(e.PreviousStatus)
		m.EscalationLegalCaseID = strPtr(e.LegalCaseID)
		m.EscalationDate = &date
		m.EscalationFee = nullDecimal(e.FeeAmount)
		m.EscalationFeeStatus = &feeStatus
		m.EscalationPrevStatus = &prev
		m.EscalationAdvocateID = strPtr(e.AdvocateID)
		m.EscalationFilingFee = nullDecimal(e.FilingFeeAmount)
	}
	return m
}

// ToDomain maps the row back onto the aggregate
func (m *CreditCase) ToDomain() *domain.CreditCase {
	c := &domain.CreditCase{
		Case: domain.Case{
			ID:          m.ID,
			TenantID:    m.TenantID,
			CaseNumber:  m.CaseNumber,
			Kind:        domain.KindCredit,
			Title:       m.Title,
			Description: m.Description,
			Status:      domain.Status(m.Status),
			Priority:    domain.Priority(m.Priority),
			AssignedTo:  strVal(m.AssignedTo),
			Documents:   []string(m.Documents),
			Version:     m.Version,
			CreatedAt:   m.CreatedAt.UTC(),
			UpdatedAt:   m.UpdatedAt.UTC(),
		},
		DebtAmount: m.DebtAmount,
		DebtorName: m.DebtorName,
	}
	if c.Documents == nil {
		c.Documents = []string{}
	}
	if m.EscalationDate != nil {
		c.Escalation = &domain.Escalation{
			LegalCaseID:     strVal(m.EscalationLegalCaseID),
			EscalationDate:  m.EscalationDate.UTC(),
			FeeAmount:       m.EscalationFee.Decimal,
			FeeStatus:       domain.FeeStatus(strVal(m.EscalationFeeStatus)),
			PreviousStatus:  domain.Status(strVal(m.EscalationPrevStatus)),
			AdvocateID:      strVal(m.EscalationAdvocateID),
			FilingFeeAmount: m.EscalationFilingFee.Decimal,
		}
	}
	return c
}

// NewLegalCase maps a domain legal case onto its row
func NewLegalCase(c *domain.LegalCase) *LegalCase {
	m := &LegalCase{
		ID:              c.ID,
		TenantID:        c.TenantID,
		CaseNumber:      c.CaseNumber,
		Title:           c.Title,
		Description:     c.Description,
		Status:          string(c.Status),
		Priority:        string(c.Priority),
		AssignedTo:      strPtr(c.AssignedTo),
		Documents:       docsOf(c.Documents),
		CaseType:        c.CaseType,
		Version:         c.Version,
		FilingFeeAmount: c.FilingFee.Amount,
		FilingFeePaid:   c.FilingFee.Paid,
		FilingFeePaidAt: c.FilingFee.PaidAt,
		Enrichment:      datatypes.NewJSONType(c.Enrichment),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if f := c.EscalatedFrom; f != nil {
		date := f.EscalationDate
		key := f.Key()
		m.EscalatedFromCreditCaseID = strPtr(f.CreditCaseID)
		m.EscalatedFromDate = &date
		m.EscalationFee = nullDecimal(f.EscalationFee)
		m.EscalationKey = &key
	}
	return m
}

// ToDomain maps the row back onto the aggregate
func (m *LegalCase) ToDomain() *domain.LegalCase {
	c := &domain.LegalCase{
		Case: domain.Case{
			ID:          m.ID,
			TenantID:    m.TenantID,
			CaseNumber:  m.CaseNumber,
			Kind:        domain.KindLegal,
			Title:       m.Title,
			Description: m.Description,
			Status:      domain.Status(m.Status),
			Priority:    domain.Priority(m.Priority),
			AssignedTo:  strVal(m.AssignedTo),
			Documents:   []string(m.Documents),
			Version:     m.Version,
			CreatedAt:   m.CreatedAt.UTC(),
			UpdatedAt:   m.UpdatedAt.UTC(),
		},
		CaseType: m.CaseType,
		FilingFee: domain.FilingFee{
			Amount: m.FilingFeeAmount,
			Paid:   m.FilingFeePaid,
			PaidAt: m.FilingFeePaidAt,
		},
		Enrichment: m.Enrichment.Data(),
	}
	if c.Documents == nil {
		c.Documents = []string{}
	}
	if m.EscalatedFromCreditCaseID != nil && m.EscalatedFromDate != nil {
		c.EscalatedFrom = &domain.EscalatedFrom{
			CreditCaseID:   *m.EscalatedFromCreditCaseID,
			EscalationDate: m.EscalatedFromDate.UTC(),
			EscalationFee:  m.EscalationFee.Decimal,
		}
	}
	return c
}

// NewCaseTransition maps a transition record onto its row
func NewCaseTransition(r *domain.TransitionRecord) *CaseTransition {
	return &CaseTransition{
		ID:         r.ID,
		TenantID:   r.TenantID,
		CaseID:     r.CaseID,
		CaseKind:   string(r.CaseKind),
		FromStatus: string(r.FromStatus),
		ToStatus:   string(r.ToStatus),
		ActorID:    r.ActorID,
		ActorRole:  string(r.ActorRole),
		Result:     string(r.Result),
		Reason:     string(r.Reason),
		CreatedAt:  r.Timestamp,
	}
}

func (m *CaseTransition) ToDomain() *domain.TransitionRecord {
	return &domain.TransitionRecord{
		ID:         m.ID,
		TenantID:   m.TenantID,
		CaseID:     m.CaseID,
		CaseKind:   domain.CaseKind(m.CaseKind),
		FromStatus: domain.Status(m.FromStatus),
		ToStatus:   domain.Status(m.ToStatus),
		ActorID:    m.ActorID,
		ActorRole:  domain.Role(m.ActorRole),
		Timestamp:  m.CreatedAt.UTC(),
		Result:     domain.TransitionResult(m.Result),
		Reason:     domain.RejectionReason(m.Reason),
	}
}

func NewCaseComment(c *domain.Comment) *CaseComment {
	return &CaseComment{
		ID:        c.ID,
		TenantID:  c.TenantID,
		CaseID:    c.CaseID,
		CaseKind:  string(c.CaseKind),
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

func (m *CaseComment) ToDomain() *domain.Comment {
	return &domain.Comment{
		ID:        m.ID,
		TenantID:  m.TenantID,
		CaseID:    m.CaseID,
		CaseKind:  domain.CaseKind(m.CaseKind),
		AuthorID:  m.AuthorID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func NewUser(u *domain.User) *User {
	return &User{
		ID:       u.ID,
		TenantID: u.TenantID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

func (m *User) ToDomain() *domain.User {
	return &domain.User{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      domain.Role(m.Role),
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
