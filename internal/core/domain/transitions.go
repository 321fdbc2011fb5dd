package domain

// transitionTable is immutable after package init and shared without locking.
var transitionTable = map[CaseKind]map[Status][]Status{
	KindCredit: {
		StatusNew:              {StatusAssigned},
		StatusAssigned:         {StatusInProgress},
		StatusInProgress:       {StatusFollowUpRequired, StatusEscalatedToLegal, StatusResolved},
		StatusFollowUpRequired: {StatusInProgress},
		StatusResolved:         {StatusClosed},
		StatusEscalatedToLegal: {},
		StatusClosed:           {},
	},
	KindLegal: {
		StatusPendingAssignment: {StatusFiled},
		StatusFiled:             {StatusAssigned},
		StatusAssigned:          {StatusUnderReview},
		StatusUnderReview:       {StatusCourtProceedings, StatusAssigned},
		StatusCourtProceedings:  {StatusSettlement, StatusUnderReview},
		StatusSettlement:        {StatusResolved},
		StatusResolved:          {StatusClosed},
		StatusClosed:            {},
	},
}

// InitialStatus returns the status a newly created case of kind starts in
func InitialStatus(kind CaseKind) Status {
	if kind == KindLegal {
		return StatusPendingAssignment
	}
	return StatusNew
}

// AllowedNextStates returns the statuses reachable in one step from current.
// The returned slice is a copy.
func AllowedNextStates(kind CaseKind, current Status) []Status {
	next := transitionTable[kind][current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsAllowed reports whether from -> to is an edge of the kind's table
func IsAllowed(kind CaseKind, from, to Status) bool {
	for _, s := range transitionTable[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsKnownStatus reports whether s belongs to the kind's status set
func IsKnownStatus(kind CaseKind, s Status) bool {
	_, ok := transitionTable[kind][s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(kind CaseKind, s Status) bool {
	next, ok := transitionTable[kind][s]
	return ok && len(next) == 0
}
