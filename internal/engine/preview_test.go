package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/store"
)

func TestPreviewReportsMatchesWithoutMutating(t *testing.T) {
	dir := t.TempDir()
	invoice := filepath.Join(dir, "invoice.pdf")
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(invoice, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(notes, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	rules := store.NewRuleRepo(db)

	folderID := domain.FolderID("folder-1")
	rule, err := rules.Create(domain.Rule{
		FolderID:       folderID,
		Name:           "PDFs",
		Enabled:        true,
		StopProcessing: true,
		Conditions: domain.ConditionGroup{
			Type: domain.MatchAll,
			Conditions: []domain.Condition{
				{
					Kind:           domain.ConditionExtension,
					StringOperator: domain.OpIs,
					StringValue:    "pdf",
				},
			},
		},
		Actions: []domain.Action{{Kind: domain.ActionMove, Destination: dir}},
	})
	if err != nil {
		t.Fatal(err)
	}

	matches, err := Preview(rules, folderID, []string{invoice, notes})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if matches[0].Path != invoice {
		t.Errorf("expected match for %s, got %s", invoice, matches[0].Path)
	}
	if matches[0].RuleID != rule.ID {
		t.Errorf("expected rule id %s, got %s", rule.ID, matches[0].RuleID)
	}

	// Calling Preview again must report the same thing: it never writes to
	// the match registry or moves the file.
	again, err := Preview(rules, folderID, []string{invoice, notes})
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || again[0].Path != invoice {
		t.Fatalf("expected idempotent preview, got %+v", again)
	}
	if _, err := os.Stat(invoice); err != nil {
		t.Errorf("expected file untouched by preview, stat failed: %v", err)
	}
}

func TestPreviewSkipsUnreadablePaths(t *testing.T) {
	db := setupStore(t)
	rules := store.NewRuleRepo(db)
	folderID := domain.FolderID("folder-1")

	matches, err := Preview(rules, folderID, []string{filepath.Join(t.TempDir(), "missing.txt")})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches for a missing path, got %d", len(matches))
	}
}
