package services

import (
	"context"
	"time"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
)

// caseStore gives the state machine one view over both case collections
type caseStore interface {
	load(ctx context.Context, id string) (domain.Record, error)
	swap(ctx context.Context, rec domain.Record, expected domain.Revision) error
}

type creditStore struct {
	repo repositories.CreditCaseRepository
}

func (s creditStore) load(ctx context.Context, id string) (domain.Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s creditStore) swap(ctx context.Context, rec domain.Record, expected domain.Revision) error {
	return s.repo.CompareAndSwap(ctx, rec.(*domain.CreditCase), expected)
}

type legalStore struct {
	repo repositories.LegalCaseRepository
}

func (s legalStore) load(ctx context.Context, id string) (domain.Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s legalStore) swap(ctx context.Context, rec domain.Record, expected domain.Revision) error {
	return s.repo.CompareAndSwap(ctx, rec.(*domain.LegalCase), expected)
}

// cloneRecord deep-copies an aggregate so a failed write leaves the loaded one untouched
func cloneRecord(rec domain.Record) domain.Record {
	switch v := rec.(type) {
	case *domain.CreditCase:
		return cloneCredit(v)
	case *domain.LegalCase:
		return cloneLegal(v)
	}
	return rec
}

func cloneCredit(c *domain.CreditCase) *domain.CreditCase {
	cp := *c
	cp.Documents = append([]string{}, c.Documents...)
	if c.Escalation != nil {
		e := *c.Escalation
		cp.Escalation = &e
	}
	return &cp
}

func cloneLegal(c *domain.LegalCase) *domain.LegalCase {
	cp := *c
	cp.Documents = append([]string{}, c.Documents...)
	if c.EscalatedFrom != nil {
		f := *c.EscalatedFrom
		cp.EscalatedFrom = &f
	}
	if c.FilingFee.PaidAt != nil {
		t := *c.FilingFee.PaidAt
		cp.FilingFee.PaidAt = &t
	}
	return &cp
}

// systemClock returns UTC time at the store's millisecond precision
func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
