package webhook

import "log"

// Action is the closed set of issues-event actions the dashboard knows
// about. Anything GitHub adds later parses as ActionUnknown.
type Action int

const (
	ActionUnknown Action = iota
	ActionOpened
	ActionClosed
	ActionReopened
	ActionEdited
	ActionLabeled
	ActionUnlabeled
	ActionMilestoned
	ActionDemilestoned
	ActionAssigned
	ActionUnassigned
)

var actionNames = map[Action]string{
	ActionUnknown:      "unknown",
	ActionOpened:       "opened",
	ActionClosed:       "closed",
	ActionReopened:     "reopened",
	ActionEdited:       "edited",
	ActionLabeled:      "labeled",
	ActionUnlabeled:    "unlabeled",
	ActionMilestoned:   "milestoned",
	ActionDemilestoned: "demilestoned",
	ActionAssigned:     "assigned",
	ActionUnassigned:   "unassigned",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// ParseAction maps an issues-event action string to its Action.
// GitHub has sent both "demilestoned" and "unmilestoned" for milestone
// removal over the years; both map to ActionDemilestoned.
func ParseAction(s string) Action {
	switch s {
	case "opened":
		return ActionOpened
	case "closed":
		return ActionClosed
	case "reopened":
		return ActionReopened
	case "edited":
		return ActionEdited
	case "labeled":
		return ActionLabeled
	case "unlabeled":
		return ActionUnlabeled
	case "milestoned":
		return ActionMilestoned
	case "demilestoned", "unmilestoned":
		return ActionDemilestoned
	case "assigned":
		return ActionAssigned
	case "unassigned":
		return ActionUnassigned
	default:
		return ActionUnknown
	}
}

// IsDesirableIssueAction decides whether an issues event is worth
// persisting. Body-only edits are discarded since the store never holds
// issue bodies, and assignment events are always skipped. The decision
// is a pure function of its inputs apart from the log line on unknown
// actions.
func IsDesirableIssueAction(action Action, changes *ChangeSet) bool {
	switch action {
	case ActionOpened, ActionClosed, ActionReopened,
		ActionLabeled, ActionUnlabeled,
		ActionMilestoned, ActionDemilestoned:
		return true
	case ActionEdited:
		return changes != nil && changes.Title != nil
	case ActionAssigned, ActionUnassigned:
		return false
	default:
		// We don't know what this is, but we might want to find out.
		log.Printf("GitHub sent a funky issues-event action: %s", action)
		return false
	}
}

// EntityOp is what a label or milestone event asks of the store.
type EntityOp int

const (
	// EntityOpNone acknowledges the event without touching the store
	// (color-only label edits, milestone opened/closed, and so on).
	EntityOpNone EntityOp = iota
	EntityOpAdd
	EntityOpRename
	EntityOpRemove
)

// ClassifyLabelEvent decides the store operation for a label event.
// Renames are detected by a "name" entry in the change-set; its From
// value is the second return.
func ClassifyLabelEvent(action string, changes *ChangeSet) (EntityOp, string) {
	switch action {
	case "created":
		return EntityOpAdd, ""
	case "edited":
		if changes != nil && changes.Name != nil {
			return EntityOpRename, changes.Name.From
		}
		return EntityOpNone, ""
	case "deleted":
		return EntityOpRemove, ""
	default:
		return EntityOpNone, ""
	}
}

// ClassifyMilestoneEvent decides the store operation for a milestone
// event. Renames are detected by a "title" entry in the change-set.
func ClassifyMilestoneEvent(action string, changes *ChangeSet) (EntityOp, string) {
	switch action {
	case "created":
		return EntityOpAdd, ""
	case "edited":
		if changes != nil && changes.Title != nil {
			return EntityOpRename, changes.Title.From
		}
		return EntityOpNone, ""
	case "deleted":
		return EntityOpRemove, ""
	default:
		// opened and closed milestones are acknowledged, never stored
		return EntityOpNone, ""
	}
}
