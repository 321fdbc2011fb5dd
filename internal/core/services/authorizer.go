package services

import (
	"casedesk/internal/core/domain"
)

// Authorizer is the single place where role and assignment rules live.
// It is stateless; the zero value is ready to use.
type Authorizer struct{}

// CanTransition decides whether actor may move rec from its current status to
// toStatus. Table legality is checked separately by the state machine.
func (Authorizer) CanTransition(actor domain.Actor, rec domain.Record, toStatus domain.Status) error {
	c := rec.Header()
	if c.TenantID != actor.TenantID {
		return domain.Reject(domain.ReasonCrossTenantDenied, "case is outside the actor's firm")
	}

	if c.Kind == domain.KindCredit && toStatus == domain.StatusEscalatedToLegal {
		if actor.Role != domain.RoleFirmAdmin && actor.Role != domain.RoleCreditHead {
			return domain.Reject(domain.ReasonUnauthorized, "only firm_admin or credit_head may escalate")
		}
		if cc, ok := rec.(*domain.CreditCase); ok && cc.IsAlreadyEscalated() {
			return domain.Reject(domain.ReasonAlreadyEscalated, "credit case %s is already linked to legal case %s", cc.ID, cc.Escalation.LegalCaseID)
		}
		return nil
	}

	if isManager(actor, c.Kind) {
		return nil
	}
	if c.AssignedTo != "" && c.AssignedTo == actor.ID {
		return nil
	}
	return domain.Reject(domain.ReasonUnauthorized, "role %s may not move this case to %s", actor.Role, toStatus)
}

// CanEscalate applies the escalation rules on their own, as the coordinator
// re-validates them even when the state machine already did
func (a Authorizer) CanEscalate(actor domain.Actor, c *domain.CreditCase) error {
	return a.CanTransition(actor, c, domain.StatusEscalatedToLegal)
}

// CanManage covers creation, assignment and fee-style administration of a kind
func (Authorizer) CanManage(actor domain.Actor, c *domain.Case) error {
	if c.TenantID != actor.TenantID {
		return domain.Reject(domain.ReasonCrossTenantDenied, "case is outside the actor's firm")
	}
	if !isManager(actor, c.Kind) {
		return domain.Reject(domain.ReasonUnauthorized, "requires firm_admin or %s", c.Kind.HeadRole())
	}
	return nil
}

// CanCreate reports whether actor may open a new case of kind
func (Authorizer) CanCreate(actor domain.Actor, kind domain.CaseKind) error {
	if !isManager(actor, kind) {
		return domain.Reject(domain.ReasonUnauthorized, "requires firm_admin or %s", kind.HeadRole())
	}
	return nil
}

// CanWork covers day-to-day edits: managers plus the assignee
func (Authorizer) CanWork(actor domain.Actor, c *domain.Case) error {
	if c.TenantID != actor.TenantID {
		return domain.Reject(domain.ReasonCrossTenantDenied, "case is outside the actor's firm")
	}
	if isManager(actor, c.Kind) || (c.AssignedTo != "" && c.AssignedTo == actor.ID) {
		return nil
	}
	return domain.Reject(domain.ReasonUnauthorized, "only managers or the assignee may change this case")
}

// CanView covers reads and comments: anyone in the case's department or the assignee
func (Authorizer) CanView(actor domain.Actor, c *domain.Case) error {
	if c.TenantID != actor.TenantID {
		return domain.Reject(domain.ReasonCrossTenantDenied, "case is outside the actor's firm")
	}
	switch {
	case isManager(actor, c.Kind),
		actor.Role == c.Kind.StaffRole(),
		c.AssignedTo != "" && c.AssignedTo == actor.ID:
		return nil
	}
	return domain.Reject(domain.ReasonUnauthorized, "role %s has no access to %s cases", actor.Role, c.Kind)
}

// CanDelete reports whether actor may hard delete c
func (Authorizer) CanDelete(actor domain.Actor, c *domain.Case) error {
	if c.TenantID != actor.TenantID {
		return domain.Reject(domain.ReasonCrossTenantDenied, "case is outside the actor's firm")
	}
	if actor.Role != domain.RoleFirmAdmin {
		return domain.Reject(domain.ReasonUnauthorized, "only firm_admin may delete cases")
	}
	return nil
}

func isManager(actor domain.Actor, kind domain.CaseKind) bool {
	return actor.Role == domain.RoleFirmAdmin || actor.Role == kind.HeadRole()
}
