package assignment

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
)

// SelectCandidates filters rules down to the ones live at now and orders them
// for an assignment walk. Rules scoped to the lead's source always precede
// global rules; within each partition ordering is priority ascending, then
// rule ID ascending so equal priorities resolve the same way on every node.
// Rules scoped to a different source are excluded outright.
func SelectCandidates(rules []models.AssignmentRule, sourceID *uuid.UUID, now time.Time) []models.AssignmentRule {
	scoped := make([]models.AssignmentRule, 0, len(rules))
	global := make([]models.AssignmentRule, 0, len(rules))

	for _, rule := range rules {
		if !RuleIsActive(rule, now) {
			continue
		}
		switch {
		case rule.SourceID == nil:
			global = append(global, rule)
		case sourceID != nil && *rule.SourceID == *sourceID:
			scoped = append(scoped, rule)
		}
	}

	byPriority := func(set []models.AssignmentRule) func(i, j int) bool {
		return func(i, j int) bool {
			if set[i].Priority != set[j].Priority {
				return set[i].Priority < set[j].Priority
			}
			return set[i].ID.String() < set[j].ID.String()
		}
	}
	sort.SliceStable(scoped, byPriority(scoped))
	sort.SliceStable(global, byPriority(global))

	return append(scoped, global...)
}
