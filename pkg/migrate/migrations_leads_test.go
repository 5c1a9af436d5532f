package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestLeadsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_leads.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS leads",
		"status lead_status NOT NULL DEFAULT 'new'",
		"FOREIGN KEY (source_id) REFERENCES lead_sources(id) ON DELETE SET NULL",
		"FOREIGN KEY (assigned_agent_id) REFERENCES users(id) ON DELETE SET NULL",
		"WHERE assigned_agent_id IS NULL",
		"DROP TABLE IF EXISTS leads",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRuleMembersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_rule_members.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS rule_members",
		"FOREIGN KEY (rule_id) REFERENCES assignment_rules(id) ON DELETE CASCADE",
		"CHECK (percentage IS NULL OR (percentage >= 0 AND percentage <= 100))",
		"CHECK (weight >= 1)",
		"UNIQUE (rule_id, agent_id)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
