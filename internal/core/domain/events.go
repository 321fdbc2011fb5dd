package domain

import "time"

// EventType of a case-changed notification
type EventType string

const (
	EventCaseCreated       EventType = "caseCreated"
	EventCaseStatusChanged EventType = "caseStatusChanged"
	EventCaseAssigned      EventType = "caseAssigned"
	EventCaseCommented     EventType = "caseCommented"
	EventCaseEscalated     EventType = "caseEscalated"
)

// CaseEvent is a tenant-scoped hint that a case changed. Subscribers must
// re-fetch the case; the event is never the source of truth.
type CaseEvent struct {
	TenantID   string    `json:"tenant_id"`
	Type       EventType `json:"type"`
	CaseID     string    `json:"case_id"`
	CaseKind   CaseKind  `json:"case_kind"`
	Version    int64     `json:"version"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StatusChangedPayload accompanies caseStatusChanged
type StatusChangedPayload struct {
	FromStatus Status `json:"from_status"`
	ToStatus   Status `json:"to_status"`
	ActorID    string `json:"actor_id"`
}

// AssignedPayload accompanies caseAssigned
type AssignedPayload struct {
	AssignedTo string `json:"assigned_to"`
	ActorID    string `json:"actor_id"`
}

// CommentedPayload accompanies caseCommented
type CommentedPayload struct {
	CommentID string `json:"comment_id"`
	AuthorID  string `json:"author_id"`
}

// EscalatedPayload accompanies caseEscalated and carries both ids
type EscalatedPayload struct {
	CreditCaseID   string    `json:"credit_case_id"`
	LegalCaseID    string    `json:"legal_case_id"`
	EscalationDate time.Time `json:"escalation_date"`
}
