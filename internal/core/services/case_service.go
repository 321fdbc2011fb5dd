package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CaseService handles everything around a case that is not a status
// transition: creation, reads, assignment, comments, documents and fees
type CaseService struct {
	credit      creditStore
	legal       legalStore
	creditRepo  repositories.CreditCaseRepository
	legalRepo   repositories.LegalCaseRepository
	userRepo    repositories.UserRepository
	commentRepo repositories.CommentRepository
	historyRepo repositories.TransitionRepository
	auth        Authorizer
	events      EventBroadcaster
	clock       func() time.Time
	log         *logger.Logger
}

// NewCaseService creates a new case service
func NewCaseService(
	creditRepo repositories.CreditCaseRepository,
	legalRepo repositories.LegalCaseRepository,
	userRepo repositories.UserRepository,
	commentRepo repositories.CommentRepository,
	historyRepo repositories.TransitionRepository,
	events EventBroadcaster,
	log *logger.Logger,
) *CaseService {
	return &CaseService{
		credit:      creditStore{repo: creditRepo},
		legal:       legalStore{repo: legalRepo},
		creditRepo:  creditRepo,
		legalRepo:   legalRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		historyRepo: historyRepo,
		events:      events,
		clock:       systemClock,
		log:         log.With("component", "CaseService"),
	}
}

// CreateCreditCaseInput represents create credit case input
type CreateCreditCaseInput struct {
	CaseNumber  string          `json:"case_number"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	DebtorName  string          `json:"debtor_name"`
	DebtAmount  decimal.Decimal `json:"debt_amount"`
	Priority    domain.Priority `json:"priority"`
	AssignedTo  string          `json:"assigned_to"`
}

// CreateLegalCaseInput represents create legal case input
type CreateLegalCaseInput struct {
	CaseNumber  string          `json:"case_number"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CaseType    string          `json:"case_type"`
	FilingFee   decimal.Decimal `json:"filing_fee"`
	Priority    domain.Priority `json:"priority"`
	AssignedTo  string          `json:"assigned_to"`
}

// CreditCaseView is a credit case as read by clients. Degraded marks the
// "escalating, no legal case yet" state.
type CreditCaseView struct {
	*domain.CreditCase
	Degraded bool `json:"degraded"`
}

// CreateCreditCase opens a credit case in status new
func (s *CaseService) CreateCreditCase(ctx context.Context, actor domain.Actor, in CreateCreditCaseInput) (*domain.CreditCase, error) {
	if err := s.auth.CanCreate(actor, domain.KindCredit); err != nil {
		return nil, err
	}
	in.DebtorName = strings.TrimSpace(in.DebtorName)
	if in.DebtorName == "" {
		return nil, domain.Invalid("debtorName", "is required")
	}
	if err := checkLengths(
		lengthRule{"debtorName", in.DebtorName, maxTitleLen},
		lengthRule{"title", strings.TrimSpace(in.Title), maxTitleLen},
		lengthRule{"caseNumber", strings.TrimSpace(in.CaseNumber), maxCaseNumberLen},
	); err != nil {
		return nil, err
	}
	if in.DebtAmount.IsNegative() {
		return nil, domain.Invalid("debtAmount", "must be zero or positive")
	}
	priority, err := priorityOrDefault(in.Priority)
	if err != nil {
		return nil, err
	}
	if in.AssignedTo != "" {
		if err := s.checkAssignee(ctx, actor.TenantID, domain.KindCredit, in.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	c := &domain.CreditCase{
		Case: domain.Case{
			ID:          uuid.NewString(),
			TenantID:    actor.TenantID,
			CaseNumber:  caseNumberOrNew(in.CaseNumber, domain.KindCredit, now),
			Kind:        domain.KindCredit,
			Title:       titleOr(in.Title, in.DebtorName),
			Description: in.Description,
			Status:      domain.InitialStatus(domain.KindCredit),
			Priority:    priority,
			AssignedTo:  in.AssignedTo,
			Documents:   []string{},
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		DebtAmount: in.DebtAmount,
		DebtorName: in.DebtorName,
	}
	if err := s.creditRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.events.Publish(createdEvent(&c.Case))
	s.log.Info("credit case created", "case_id", c.ID, "case_number", c.CaseNumber, "tenant_id", c.TenantID)
	return c, nil
}

// CreateLegalCase opens a legal case directly, without an escalation
func (s *CaseService) CreateLegalCase(ctx context.Context, actor domain.Actor, in CreateLegalCaseInput) (*domain.LegalCase, error) {
	if err := s.auth.CanCreate(actor, domain.KindLegal); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, domain.Invalid("title", "is required")
	}
	if err := checkLengths(
		lengthRule{"title", in.Title, maxTitleLen},
		lengthRule{"caseNumber", strings.TrimSpace(in.CaseNumber), maxCaseNumberLen},
		lengthRule{"caseType", strings.TrimSpace(in.CaseType), maxCaseTypeLen},
	); err != nil {
		return nil, err
	}
	if in.FilingFee.IsNegative() {
		return nil, domain.Invalid("filingFee", "must be zero or positive")
	}
	priority, err := priorityOrDefault(in.Priority)
	if err != nil {
		return nil, err
	}
	if in.AssignedTo != "" {
		if err := s.checkAssignee(ctx, actor.TenantID, domain.KindLegal, in.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	c := &domain.LegalCase{
		Case: domain.Case{
			ID:          uuid.NewString(),
			TenantID:    actor.TenantID,
			CaseNumber:  caseNumberOrNew(in.CaseNumber, domain.KindLegal, now),
			Kind:        domain.KindLegal,
			Title:       in.Title,
			Description: in.Description,
			Status:      domain.InitialStatus(domain.KindLegal),
			Priority:    priority,
			AssignedTo:  in.AssignedTo,
			Documents:   []string{},
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		CaseType:  in.CaseType,
		FilingFee: domain.FilingFee{Amount: in.FilingFee},
	}
	if err := s.legalRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.events.Publish(createdEvent(&c.Case))
	s.log.Info("legal case created", "case_id", c.ID, "case_number", c.CaseNumber, "tenant_id", c.TenantID)
	return c, nil
}

// GetCreditCase gets a credit case of the actor's firm
func (s *CaseService) GetCreditCase(ctx context.Context, actor domain.Actor, id string) (*CreditCaseView, error) {
	c, err := s.creditRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.CanView(actor, &c.Case); err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

// GetLegalCase gets a legal case of the actor's firm
func (s *CaseService) GetLegalCase(ctx context.Context, actor domain.Actor, id string) (*domain.LegalCase, error) {
	c, err := s.legalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.CanView(actor, &c.Case); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCreditCases lists the actor's firm's credit cases
func (s *CaseService) ListCreditCases(ctx context.Context, actor domain.Actor, filter repositories.CaseFilter, offset, limit int) ([]*CreditCaseView, int64, error) {
	if err := s.canList(actor, domain.KindCredit); err != nil {
		return nil, 0, err
	}
	cases, total, err := s.creditRepo.List(ctx, actor.TenantID, filter, offset, clampLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	views := make([]*CreditCaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, viewOf(c))
	}
	return views, total, nil
}

// ListLegalCases lists the actor's firm's legal cases
func (s *CaseService) ListLegalCases(ctx context.Context, actor domain.Actor, filter repositories.CaseFilter, offset, limit int) ([]*domain.LegalCase, int64, error) {
	if err := s.canList(actor, domain.KindLegal); err != nil {
		return nil, 0, err
	}
	return s.legalRepo.List(ctx, actor.TenantID, filter, offset, clampLimit(limit))
}

// Assign hands a case to a member of its department
func (s *CaseService) Assign(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID, userID string) (domain.Record, error) {
	if userID == "" {
		return nil, domain.Invalid("userId", "is required")
	}
	rec, err := s.mutate(ctx, kind, caseID, func(c *domain.Case) error {
		return s.auth.CanManage(actor, c)
	}, func(rec domain.Record) (bool, error) {
		c := rec.Header()
		if domain.IsTerminal(c.Kind, c.Status) {
			return false, domain.Reject(domain.ReasonInvalidTransition, "case in %s can no longer be reassigned", c.Status)
		}
		if c.AssignedTo == userID {
			return false, nil
		}
		if err := s.checkAssignee(ctx, c.TenantID, c.Kind, userID); err != nil {
			return false, err
		}
		c.AssignedTo = userID
		return true, nil
	})
	if err != nil || rec == nil {
		return rec, err
	}

	c := rec.Header()
	s.events.Publish(domain.CaseEvent{
		TenantID:   c.TenantID,
		Type:       domain.EventCaseAssigned,
		CaseID:     c.ID,
		CaseKind:   c.Kind,
		Version:    c.Version,
		Payload:    domain.AssignedPayload{AssignedTo: userID, ActorID: actor.ID},
		OccurredAt: c.UpdatedAt,
	})
	return rec, nil
}

// Comment adds a comment to a case
func (s *CaseService) Comment(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.Invalid("body", "is required")
	}
	rec, err := s.load(ctx, kind, caseID)
	if err != nil {
		return nil, err
	}
	c := rec.Header()
	if err := s.auth.CanView(actor, c); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		TenantID:  c.TenantID,
		CaseID:    c.ID,
		CaseKind:  c.Kind,
		AuthorID:  actor.ID,
		Body:      body,
		CreatedAt: s.clock(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.events.Publish(domain.CaseEvent{
		TenantID:   c.TenantID,
		Type:       domain.EventCaseCommented,
		CaseID:     c.ID,
		CaseKind:   c.Kind,
		Version:    c.Version,
		Payload:    domain.CommentedPayload{CommentID: comment.ID, AuthorID: actor.ID},
		OccurredAt: comment.CreatedAt,
	})
	return comment, nil
}

// Comments lists a case's comments, newest first
func (s *CaseService) Comments(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID string, limit int) ([]*domain.Comment, error) {
	rec, err := s.load(ctx, kind, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.CanView(actor, rec.Header()); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByCase(ctx, actor.TenantID, caseID, clampLimit(limit))
}

// AttachDocument appends a document reference; attaching twice is a no-op
func (s *CaseService) AttachDocument(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID, documentID string) (domain.Record, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domain.Invalid("documentId", "is required")
	}
	return s.mutate(ctx, kind, caseID, func(c *domain.Case) error {
		return s.auth.CanWork(actor, c)
	}, func(rec domain.Record) (bool, error) {
		c := rec.Header()
		if c.HasDocument(documentID) {
			return false, nil
		}
		c.Documents = append(c.Documents, documentID)
		return true, nil
	})
}

// Delete hard deletes a case. There is no undo.
func (s *CaseService) Delete(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID string) error {
	rec, err := s.load(ctx, kind, caseID)
	if err != nil {
		return err
	}
	c := rec.Header()
	if err := s.auth.CanDelete(actor, c); err != nil {
		return err
	}

	if kind == domain.KindLegal {
		err = s.legalRepo.Delete(ctx, c.TenantID, c.ID)
	} else {
		err = s.creditRepo.Delete(ctx, c.TenantID, c.ID)
	}
	if err != nil {
		return err
	}
	s.log.Warn("case deleted", "case_id", c.ID, "kind", kind, "actor_id", actor.ID)
	return nil
}

// History lists a case's transition records, newest first
func (s *CaseService) History(ctx context.Context, actor domain.Actor, kind domain.CaseKind, caseID string, limit int) ([]*domain.TransitionRecord, error) {
	rec, err := s.load(ctx, kind, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.CanView(actor, rec.Header()); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByCase(ctx, actor.TenantID, caseID, clampLimit(limit))
}

// EnrichLegalCase merges court metadata into a legal case
func (s *CaseService) EnrichLegalCase(ctx context.Context, actor domain.Actor, caseID string, enrichment domain.LegalEnrichment) (*domain.LegalCase, error) {
	if enrichment == (domain.LegalEnrichment{}) {
		return nil, domain.Invalid("enrichment", "at least one field is required")
	}
	rec, err := s.mutate(ctx, domain.KindLegal, caseID, func(c *domain.Case) error {
		return s.auth.CanWork(actor, c)
	}, func(rec domain.Record) (bool, error) {
		lc := rec.(*domain.LegalCase)
		merged := lc.Enrichment.Merge(enrichment)
		if merged == lc.Enrichment {
			return false, nil
		}
		lc.Enrichment = merged
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rec.(*domain.LegalCase), nil
}

// MarkFilingFeePaid records the legal case's filing fee as paid
func (s *CaseService) MarkFilingFeePaid(ctx context.Context, actor domain.Actor, caseID string) (*domain.LegalCase, error) {
	rec, err := s.mutate(ctx, domain.KindLegal, caseID, func(c *domain.Case) error {
		return s.auth.CanWork(actor, c)
	}, func(rec domain.Record) (bool, error) {
		lc := rec.(*domain.LegalCase)
		if lc.FilingFee.Paid {
			return false, nil
		}
		paidAt := s.clock()
		lc.FilingFee.Paid = true
		lc.FilingFee.PaidAt = &paidAt
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rec.(*domain.LegalCase), nil
}

// ConfirmEscalationFee marks a linked escalation's fee as confirmed
func (s *CaseService) ConfirmEscalationFee(ctx context.Context, actor domain.Actor, creditCaseID string) (*domain.CreditCase, error) {
	rec, err := s.mutate(ctx, domain.KindCredit, creditCaseID, func(c *domain.Case) error {
		return s.auth.CanManage(actor, c)
	}, func(rec domain.Record) (bool, error) {
		cc := rec.(*domain.CreditCase)
		if !cc.IsAlreadyEscalated() {
			return false, domain.Reject(domain.ReasonInvalidTransition, "credit case %s has no linked escalation", cc.ID)
		}
		if cc.Escalation.FeeStatus == domain.FeeConfirmed {
			return false, nil
		}
		cc.Escalation.FeeStatus = domain.FeeConfirmed
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rec.(*domain.CreditCase), nil
}

func (s *CaseService) store(kind domain.CaseKind) caseStore {
	if kind == domain.KindLegal {
		return s.legal
	}
	return s.credit
}

func (s *CaseService) load(ctx context.Context, kind domain.CaseKind, caseID string) (domain.Record, error) {
	if !kind.Valid() {
		return nil, domain.Invalid("caseType", fmt.Sprintf("unknown case type %q", kind))
	}
	if caseID == "" {
		return nil, domain.Invalid("caseId", "is required")
	}
	return s.store(kind).load(ctx, caseID)
}

// mutate loads a case, authorizes, applies change to a copy and writes it
// with compare-and-set. A change reporting false skips the write and returns
// the case as loaded.
func (s *CaseService) mutate(
	ctx context.Context,
	kind domain.CaseKind,
	caseID string,
	authorize func(c *domain.Case) error,
	change func(rec domain.Record) (bool, error),
) (domain.Record, error) {
	rec, err := s.load(ctx, kind, caseID)
	if err != nil {
		return nil, err
	}
	c := rec.Header()
	if err := authorize(c); err != nil {
		return nil, err
	}

	next := cloneRecord(rec)
	changed, err := change(next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return rec, nil
	}
	next.Header().Touch(s.clock())

	if err := s.store(kind).swap(ctx, next, domain.RevisionOf(c)); err != nil {
		if errors.Is(err, domain.ErrStaleWrite) {
			return nil, domain.Reject(domain.ReasonStaleState, "case %s changed since it was read; reload and retry", c.ID)
		}
		return nil, err
	}
	return next, nil
}

func (s *CaseService) canList(actor domain.Actor, kind domain.CaseKind) error {
	if isManager(actor, kind) || actor.Role == kind.StaffRole() {
		return nil
	}
	return domain.Reject(domain.ReasonUnauthorized, "role %s has no access to %s cases", actor.Role, kind)
}

// checkAssignee verifies that userID can own a case of kind in tenantID
func (s *CaseService) checkAssignee(ctx context.Context, tenantID string, kind domain.CaseKind, userID string) error {
	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Invalid("assignedTo", "no such user in this firm")
		}
		return err
	}
	if !user.IsActive {
		return domain.Invalid("assignedTo", "user is inactive")
	}
	if user.Role != kind.StaffRole() && user.Role != kind.HeadRole() {
		return domain.Invalid("assignedTo", fmt.Sprintf("role %s cannot own %s cases", user.Role, kind))
	}
	return nil
}

func viewOf(c *domain.CreditCase) *CreditCaseView {
	return &CreditCaseView{CreditCase: c, Degraded: c.IsEscalationUnlinked()}
}

func createdEvent(c *domain.Case) domain.CaseEvent {
	return domain.CaseEvent{
		TenantID:   c.TenantID,
		Type:       domain.EventCaseCreated,
		CaseID:     c.ID,
		CaseKind:   c.Kind,
		Version:    c.Version,
		OccurredAt: c.CreatedAt,
	}
}

func priorityOrDefault(p domain.Priority) (domain.Priority, error) {
	if p == "" {
		return domain.PriorityMedium, nil
	}
	if !p.Valid() {
		return "", domain.Invalid("priority", fmt.Sprintf("unknown priority %q", p))
	}
	return p, nil
}

// column widths of the case tables
const (
	maxTitleLen      = 200
	maxCaseNumberLen = 40
	maxCaseTypeLen   = 64
)

type lengthRule struct {
	field string
	value string
	max   int
}

func checkLengths(rules ...lengthRule) error {
	for _, r := range rules {
		if utf8.RuneCountInString(r.value) > r.max {
			return domain.Invalid(r.field, fmt.Sprintf("must be at most %d characters", r.max))
		}
	}
	return nil
}

// truncateRunes cuts s to at most n characters
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func titleOr(title, fallback string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return fallback
}

func caseNumberOrNew(number string, kind domain.CaseKind, now time.Time) string {
	if n := strings.TrimSpace(number); n != "" {
		return n
	}
	return newCaseNumber(kind, now)
}

// newCaseNumber generates CC-YYYYMMDD-XXXXXX or LC-YYYYMMDD-XXXXXX
func newCaseNumber(kind domain.CaseKind, now time.Time) string {
	prefix := "CC"
	if kind == domain.KindLegal {
		prefix = "LC"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
