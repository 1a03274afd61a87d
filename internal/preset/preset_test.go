package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/filedispatch/agent/internal/domain"
)

const samplePreset = `{
  "formatVersion": "1",
  "preset": {
    "id": "invoices",
    "name": "Invoice sorter",
    "variables": [
      {"id": "dest", "name": "Destination folder", "type": "string"},
      {"id": "ext", "name": "Extension", "type": "string", "default": "pdf"}
    ],
    "rules": [
      {
        "name": "Move ${ext} files",
        "conditions": {
          "type": "all",
          "conditions": [
            {"kind": "extension", "stringOperator": "is", "stringValue": "${ext}"}
          ]
        },
        "actions": [
          {"kind": "move", "destination": "${dest}"}
        ]
      }
    ]
  }
}`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "invoices.json")
	if err := os.WriteFile(path, []byte(samplePreset), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFileParsesPreset(t *testing.T) {
	path := writeSample(t)
	file, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if file.Preset.Name != "Invoice sorter" {
		t.Errorf("expected preset name to parse, got %q", file.Preset.Name)
	}
	if len(file.Preset.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(file.Preset.Variables))
	}
}

func TestResolveVariablesUsesDefaultThenFailsFast(t *testing.T) {
	file, err := ReadFile(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}

	// Missing "dest" with no default must fail fast.
	if _, err := ResolveVariables(file.Preset, map[string]string{}); err == nil {
		t.Fatal("expected error for missing variable with no default")
	}

	resolved, err := ResolveVariables(file.Preset, map[string]string{"dest": "/tmp/invoices"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved["dest"] != "/tmp/invoices" {
		t.Errorf("expected provided value to win, got %q", resolved["dest"])
	}
	if resolved["ext"] != "pdf" {
		t.Errorf("expected default value for ext, got %q", resolved["ext"])
	}
}

func TestInstallSubstitutesIntoRuleConditionsAndActions(t *testing.T) {
	file, err := ReadFile(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}

	folderID := domain.FolderID("folder-1")
	rules, err := Install(file, folderID, map[string]string{"dest": "/tmp/invoices", "ext": "pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	r := rules[0]
	if r.FolderID != folderID {
		t.Errorf("expected folder id %s, got %s", folderID, r.FolderID)
	}
	if r.Name != "Move pdf files" {
		t.Errorf("expected substituted name, got %q", r.Name)
	}
	if !r.Enabled {
		t.Error("expected default Enabled=true when omitted")
	}
	if !r.StopProcessing {
		t.Error("expected default StopProcessing=true when omitted")
	}
	if r.Conditions.Conditions[0].StringValue != "pdf" {
		t.Errorf("expected condition substitution, got %q", r.Conditions.Conditions[0].StringValue)
	}
	if r.Actions[0].Destination != "/tmp/invoices" {
		t.Errorf("expected action destination substitution, got %q", r.Actions[0].Destination)
	}
}

func TestInstallFailsFastOnMissingVariable(t *testing.T) {
	file, err := ReadFile(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Install(file, domain.FolderID("folder-1"), map[string]string{}); err == nil {
		t.Fatal("expected Install to fail fast without a dest value")
	}
}
