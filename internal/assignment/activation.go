package assignment

import (
	"time"

	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
)

// RuleIsActive reports whether the rule may hand out leads at the provided
// wall-clock instant. Inactive rules are never live. A weekday set restricts
// the rule to those days (0=Sunday..6=Saturday); a start/end pair restricts it
// to that inclusive minutes-since-midnight window. Absent window fields impose
// no constraint. Pure function: callers must evaluate fresh per attempt, never
// cache across a batch that may span a day or window boundary.
func RuleIsActive(rule models.AssignmentRule, now time.Time) bool {
	if !rule.IsActive {
		return false
	}

	if len(rule.Weekdays) > 0 {
		weekday := int64(now.Weekday())
		matched := false
		for _, day := range rule.Weekdays {
			if day == weekday {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if rule.HasWindow() {
		minute := now.Hour()*60 + now.Minute()
		if minute < *rule.StartMinute || minute > *rule.EndMinute {
			return false
		}
	}

	return true
}
