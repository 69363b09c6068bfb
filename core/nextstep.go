package core

import (
	"fmt"
	"time"
)

type NextStepKind int

const (
	NextStepUnknown NextStepKind = iota
	NextStepSuspension
	NextStepDeletion
)

// NextStepInfo is the projected next lifecycle step, for display only.
type NextStepInfo struct {
	Kind       NextStepKind
	Date       time.Time
	Overridden bool
}

func (n NextStepInfo) String() string {
	var what string
	switch n.Kind {
	case NextStepSuspension:
		what = "Suspension"
	case NextStepDeletion:
		what = "Deletion"
	default:
		return "Unknown"
	}
	s := fmt.Sprintf("%s coming up on %s", what, FormatDay(n.Date))
	if n.Overridden {
		s += " (overridden)"
	}
	return s
}

// NextStep projects the next action for u. Override dates are used as given
// when overridesConfigured is set; otherwise the date is projected from the
// creation time and the relevant period.
func NextStep(u UserAccount, o UserOverrides, cfg Config, overridesConfigured bool) NextStepInfo {
	if !u.HasValidCreatedAt() {
		return NextStepInfo{Kind: NextStepUnknown}
	}
	loc := cfg.location()

	if u.Suspended || !cfg.SuspensionEnabled {
		if overridesConfigured && o.DeletionAt != nil {
			return NextStepInfo{Kind: NextStepDeletion, Date: o.DeletionAt.In(loc), Overridden: true}
		}
		return NextStepInfo{Kind: NextStepDeletion, Date: ProjectedActionDate(u.CreatedAt, loc, cfg.DeletionPeriodDays)}
	}

	if overridesConfigured && o.SuspensionAt != nil {
		return NextStepInfo{Kind: NextStepSuspension, Date: o.SuspensionAt.In(loc), Overridden: true}
	}
	return NextStepInfo{Kind: NextStepSuspension, Date: ProjectedActionDate(u.CreatedAt, loc, cfg.SuspensionPeriodDays)}
}

// NextStepDescription is NextStep rendered for the user list.
func NextStepDescription(u UserAccount, o UserOverrides, cfg Config, overridesConfigured bool) string {
	return NextStep(u, o, cfg, overridesConfigured).String()
}

func AccountStatus(u UserAccount) string {
	if u.Suspended {
		return "Suspended"
	}
	return "Active"
}

// AccountOverridden says whether any override date is set for the user.
func AccountOverridden(o UserOverrides) string {
	if o.Any() {
		return "Yes"
	}
	return "No"
}
