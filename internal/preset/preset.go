// Package preset implements preset installation: reading a JSON preset
// file (a named rule bundle with `${var_id}` placeholders), resolving
// its declared variables against caller-supplied values and defaults,
// substituting them into every rule's name/conditions/actions, and
// returning the resulting rules for the caller to persist to a folder.
// Grounded on the original
// implementation's commands/presets.rs and models/preset.rs — a feature
// the distilled spec dropped but the original fully supports.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/filedispatch/agent/internal/domain"
)

// File is the on-disk preset document: a format version plus one Preset.
type File struct {
	FormatVersion string `json:"formatVersion"`
	Preset        Preset `json:"preset"`
}

// Preset is a named, authored bundle of rules plus the variables their
// templates reference.
type Preset struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Author      string     `json:"author,omitempty"`
	Version     string     `json:"version,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
	Rules       []Rule     `json:"rules"`
}

// Variable is one substitution point a preset declares; installers must
// supply a value unless Default is non-empty.
type Variable struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
}

// Rule mirrors domain.Rule minus the identifiers a fresh install assigns.
type Rule struct {
	Name           string                `json:"name"`
	Enabled        *bool                 `json:"enabled,omitempty"`
	StopProcessing *bool                 `json:"stopProcessing,omitempty"`
	Conditions     domain.ConditionGroup `json:"conditions"`
	Actions        []domain.Action       `json:"actions"`
}

// ReadFile parses a preset document from disk and validates its format
// version is present.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading preset file %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing preset file %s: %w", path, err)
	}
	if strings.TrimSpace(f.FormatVersion) == "" {
		return File{}, fmt.Errorf("preset file %s is missing a format version", path)
	}
	return f, nil
}

// ResolveVariables fails fast (§ Supplemented Features: "fail-fast on
// missing variable") if a declared variable has neither a provided value
// nor a default.
func ResolveVariables(preset Preset, provided map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(preset.Variables))
	for _, v := range preset.Variables {
		if value, ok := provided[v.ID]; ok {
			resolved[v.ID] = value
			continue
		}
		if v.Default != "" {
			resolved[v.ID] = v.Default
			continue
		}
		return nil, fmt.Errorf("missing value for preset variable %q (%s)", v.ID, v.Name)
	}
	return resolved, nil
}

// Install resolves variables, substitutes them into every rule, and
// returns domain.Rule values ready for RuleRepo.Create against folderID.
// Position is left at zero; the caller's RuleRepo assigns ordering.
func Install(file File, folderID domain.FolderID, provided map[string]string) ([]domain.Rule, error) {
	vars, err := ResolveVariables(file.Preset, provided)
	if err != nil {
		return nil, err
	}

	rules := make([]domain.Rule, 0, len(file.Preset.Rules))
	for _, r := range file.Preset.Rules {
		substituteRule(&r, vars)

		enabled := true
		if r.Enabled != nil {
			enabled = *r.Enabled
		}
		stopProcessing := true
		if r.StopProcessing != nil {
			stopProcessing = *r.StopProcessing
		}

		rules = append(rules, domain.Rule{
			FolderID:       folderID,
			Name:           r.Name,
			Enabled:        enabled,
			StopProcessing: stopProcessing,
			Conditions:     r.Conditions,
			Actions:        r.Actions,
		})
	}
	return rules, nil
}

func substituteRule(r *Rule, vars map[string]string) {
	r.Name = substitute(r.Name, vars)
	substituteGroup(&r.Conditions, vars)
	for i := range r.Actions {
		substituteAction(&r.Actions[i], vars)
	}
}

func substituteGroup(group *domain.ConditionGroup, vars map[string]string) {
	for i := range group.Conditions {
		substituteCondition(&group.Conditions[i], vars)
	}
}

func substituteCondition(c *domain.Condition, vars map[string]string) {
	switch c.Kind {
	case domain.ConditionName, domain.ConditionFullName, domain.ConditionExtension:
		c.StringValue = substitute(c.StringValue, vars)
	case domain.ConditionShellScript:
		c.ShellCommand = substitute(c.ShellCommand, vars)
	case domain.ConditionNested:
		substituteGroup(c.Nested, vars)
	}
}

func substituteAction(a *domain.Action, vars map[string]string) {
	switch a.Kind {
	case domain.ActionMove, domain.ActionCopy, domain.ActionSortIntoSubfolder, domain.ActionArchive:
		a.Destination = substitute(a.Destination, vars)
	case domain.ActionUnarchive:
		if a.Destination != "" {
			a.Destination = substitute(a.Destination, vars)
		}
	case domain.ActionRename:
		a.Pattern = substitute(a.Pattern, vars)
	case domain.ActionRunScript:
		a.Command = substitute(a.Command, vars)
	case domain.ActionNotify:
		a.Message = substitute(a.Message, vars)
	}
}

// substitute replaces every `${key}` occurrence with its resolved value.
func substitute(template string, vars map[string]string) string {
	for key, value := range vars {
		template = strings.ReplaceAll(template, "${"+key+"}", value)
	}
	return template
}
