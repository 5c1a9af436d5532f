package assignment

import (
	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
)

// buildSlots expands rule members into an ordered rotation wheel. Each entry
// is an index into members. Round-robin gives every member one slot in member
// order. Weighted repeats each member by its share: percentage mode uses the
// stored percentage directly with shares below 1 dropping the member, weight
// mode clamps to a minimum of one slot so a zero-weight member still receives
// occasional traffic. Inactive members never make the wheel.
func buildSlots(strategy enums.AssignmentStrategy, members []models.RuleMember) []int {
	slots := make([]int, 0, len(members))
	for i, member := range members {
		if !member.IsActive {
			continue
		}
		reps := 1
		if strategy == enums.AssignmentStrategyWeighted {
			switch member.ShareMode {
			case enums.ShareModePercentage:
				if member.Percentage == nil || *member.Percentage < 1 {
					continue
				}
				reps = *member.Percentage
			default:
				reps = member.Weight
				if reps < 1 {
					reps = 1
				}
			}
		}
		for r := 0; r < reps; r++ {
			slots = append(slots, i)
		}
	}
	return slots
}

// nextSlot resolves the member at the rotation cursor and the cursor value a
// successful assignment must persist. The cursor is taken modulo the current
// wheel length so membership edits between assignments land on a valid slot
// instead of erroring. ok is false when no member is eligible.
func nextSlot(strategy enums.AssignmentStrategy, members []models.RuleMember, cursor int) (models.RuleMember, int, bool) {
	slots := buildSlots(strategy, members)
	if len(slots) == 0 {
		return models.RuleMember{}, 0, false
	}
	idx := cursor % len(slots)
	if idx < 0 {
		idx += len(slots)
	}
	return members[slots[idx]], (idx + 1) % len(slots), true
}
