package core

import "time"

type Action int

const (
	ActionNone Action = iota
	ActionSuspend
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionSuspend:
		return "suspend"
	case ActionDelete:
		return "delete"
	}
	return "none"
}

type Reason int

const (
	ReasonStandardPeriod Reason = iota
	ReasonOverridden
)

func (r Reason) String() string {
	if r == ReasonOverridden {
		return "overridden"
	}
	return "standard_period"
}

// Verdict is the decision for one user in one run.
type Verdict struct {
	Action Action
	Reason Reason
}

var VerdictNone = Verdict{Action: ActionNone}

func (v Verdict) String() string {
	if v.Action == ActionNone {
		return "none"
	}
	return v.Action.String() + "(" + v.Reason.String() + ")"
}

// Decide returns the action due for u at now.
//
// Override dates are only honoured when overridesConfigured is set. The
// deletion override is consulted once the account is suspended (or suspension
// is off); before that only the suspension override applies. A set override
// always shadows the matching standard period, whether or not it is due yet.
func Decide(u UserAccount, o UserOverrides, cfg Config, overridesConfigured bool, now time.Time) Verdict {
	if u.Protected() || u.Deleted {
		return VerdictNone
	}
	loc := cfg.location()
	deletionStage := !cfg.SuspensionEnabled || u.Suspended

	if overridesConfigured {
		if deletionStage {
			if o.DeletionAt != nil && o.DeletionAt.Before(now) {
				return Verdict{Action: ActionDelete, Reason: ReasonOverridden}
			}
		} else if o.SuspensionAt != nil && o.SuspensionAt.Before(now) {
			return Verdict{Action: ActionSuspend, Reason: ReasonOverridden}
		}
	}

	if !u.HasValidCreatedAt() {
		return VerdictNone
	}

	if deletionStage {
		if overridesConfigured && o.DeletionAt != nil {
			return VerdictNone
		}
		if u.CreatedAt.Before(ReferenceDay(now, loc, cfg.DeletionPeriodDays)) {
			return Verdict{Action: ActionDelete, Reason: ReasonStandardPeriod}
		}
		return VerdictNone
	}

	if overridesConfigured && o.SuspensionAt != nil {
		return VerdictNone
	}
	if u.CreatedAt.Before(ReferenceDay(now, loc, cfg.SuspensionPeriodDays)) {
		return Verdict{Action: ActionSuspend, Reason: ReasonStandardPeriod}
	}
	return VerdictNone
}
