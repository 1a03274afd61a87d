package condition

import (
	"testing"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

func baseInfo() domain.FileInfo {
	return domain.FileInfo{
		Path:      "/home/user/Downloads/invoice-2024.pdf",
		Stem:      "invoice-2024",
		Ext:       "pdf",
		FullName:  "invoice-2024.pdf",
		Size:      2048,
		Created:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Modified:  time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Added:     time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Kind:      domain.KindDocument,
		ParentDir: "/home/user/Downloads",
	}
}

func TestEvaluateStringConditions(t *testing.T) {
	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"is match", domain.Condition{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "pdf"}, true},
		{"is mismatch", domain.Condition{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "txt"}, false},
		{"contains", domain.Condition{Kind: domain.ConditionName, StringOperator: domain.OpContains, StringValue: "invoice"}, true},
		{"starts with", domain.Condition{Kind: domain.ConditionName, StringOperator: domain.OpStartsWith, StringValue: "invoice"}, true},
		{"ends with", domain.Condition{Kind: domain.ConditionFullName, StringOperator: domain.OpEndsWith, StringValue: ".pdf"}, true},
		{"case insensitive is", domain.Condition{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "PDF"}, true},
		{"case sensitive mismatch", domain.Condition{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "PDF", CaseSensitive: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := domain.Rule{Conditions: domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{tt.cond}}}
			r, err := Evaluate(rule, baseInfo())
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if r.Matched != tt.want {
				t.Errorf("got matched=%v, want %v", r.Matched, tt.want)
			}
		})
	}
}

func TestEvaluateMatchesCaptures(t *testing.T) {
	cond := domain.Condition{
		Kind:           domain.ConditionName,
		StringOperator: domain.OpMatches,
		StringValue:    `invoice-(\d+)`,
	}
	rule := domain.Rule{Conditions: domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{cond}}}

	r, err := Evaluate(rule, baseInfo())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !r.Matched {
		t.Fatal("expected match")
	}
	if r.Captures["1"] != "2024" {
		t.Errorf("expected capture 1 = 2024, got %q", r.Captures["1"])
	}
}

func TestEvaluateSizeConditions(t *testing.T) {
	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"greater than bytes", domain.Condition{Kind: domain.ConditionSize, SizeOperator: domain.SizeGreaterThan, SizeValue: 1000, SizeUnit: domain.UnitBytes}, true},
		{"less than kb", domain.Condition{Kind: domain.ConditionSize, SizeOperator: domain.SizeLessThan, SizeValue: 1, SizeUnit: domain.UnitKilobytes}, false},
		{"between inclusive", domain.Condition{Kind: domain.ConditionSize, SizeOperator: domain.SizeBetween, SizeValue: 2048, SizeValueMax: 4096, SizeUnit: domain.UnitBytes}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := domain.Rule{Conditions: domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{tt.cond}}}
			r, err := Evaluate(rule, baseInfo())
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if r.Matched != tt.want {
				t.Errorf("got matched=%v, want %v", r.Matched, tt.want)
			}
		})
	}
}

func TestEvaluateDateConditions(t *testing.T) {
	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"is exact day", domain.Condition{Kind: domain.ConditionDateModified, DateOperator: domain.DateIs, DateValue: "2024-03-02"}, true},
		{"is before", domain.Condition{Kind: domain.ConditionDateModified, DateOperator: domain.DateIsBefore, DateValue: "2024-03-01"}, false},
		{"is after", domain.Condition{Kind: domain.ConditionDateModified, DateOperator: domain.DateIsAfter, DateValue: "2024-01-01"}, true},
		{"between", domain.Condition{Kind: domain.ConditionDateModified, DateOperator: domain.DateBetween, DateValue: "2024-03-01", DateValueMax: "2024-03-31"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := domain.Rule{Conditions: domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{tt.cond}}}
			r, err := Evaluate(rule, baseInfo())
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if r.Matched != tt.want {
				t.Errorf("got matched=%v, want %v", r.Matched, tt.want)
			}
		})
	}
}

func TestEvaluateDateInTheLast(t *testing.T) {
	info := baseInfo()
	info.Modified = time.Now().UTC().Add(-1 * time.Hour)

	rule := domain.Rule{Conditions: domain.ConditionGroup{
		Type: domain.MatchAll,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionDateModified, DateOperator: domain.DateInTheLast, DateAmount: 1, DateUnit: domain.UnitDays},
		},
	}}

	r, err := Evaluate(rule, info)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !r.Matched {
		t.Error("expected file modified an hour ago to be in the last day")
	}
}

func TestEvaluateKindCondition(t *testing.T) {
	rule := domain.Rule{Conditions: domain.ConditionGroup{
		Type: domain.MatchAll,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionKindOf, KindValue: domain.KindDocument},
		},
	}}

	r, err := Evaluate(rule, baseInfo())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !r.Matched {
		t.Error("expected document kind to match")
	}
}

func TestEvaluateGroupCombinators(t *testing.T) {
	extIsPdf := domain.Condition{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "pdf"}
	extIsTxt := domain.Condition{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "txt"}

	tests := []struct {
		name  string
		group domain.ConditionGroup
		want  bool
	}{
		{"all true", domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{extIsPdf}}, true},
		{"all false", domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{extIsPdf, extIsTxt}}, false},
		{"any true", domain.ConditionGroup{Type: domain.MatchAny, Conditions: []domain.Condition{extIsTxt, extIsPdf}}, true},
		{"any false", domain.ConditionGroup{Type: domain.MatchAny, Conditions: []domain.Condition{}}, false},
		{"none true", domain.ConditionGroup{Type: domain.MatchNone, Conditions: []domain.Condition{extIsTxt}}, true},
		{"none false", domain.ConditionGroup{Type: domain.MatchNone, Conditions: []domain.Condition{extIsPdf}}, false},
		{"empty all vacuous true", domain.ConditionGroup{Type: domain.MatchAll, Conditions: []domain.Condition{}}, true},
		{"empty none vacuous true", domain.ConditionGroup{Type: domain.MatchNone, Conditions: []domain.Condition{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := domain.Rule{Conditions: tt.group}
			r, err := Evaluate(rule, baseInfo())
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if r.Matched != tt.want {
				t.Errorf("got matched=%v, want %v", r.Matched, tt.want)
			}
		})
	}
}

func TestEvaluateNestedGroup(t *testing.T) {
	nested := domain.ConditionGroup{
		Type: domain.MatchAny,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "jpg"},
			{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "pdf"},
		},
	}
	rule := domain.Rule{Conditions: domain.ConditionGroup{
		Type: domain.MatchAll,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionNested, Nested: &nested},
		},
	}}

	r, err := Evaluate(rule, baseInfo())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !r.Matched {
		t.Error("expected nested group to match via pdf branch")
	}
}

func TestEvaluateShellScript(t *testing.T) {
	rule := domain.Rule{Conditions: domain.ConditionGroup{
		Type: domain.MatchAll,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionShellScript, ShellCommand: `test -n "$FILE_PATH"`},
		},
	}}

	r, err := Evaluate(rule, baseInfo())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !r.Matched {
		t.Error("expected shell condition exposing FILE_PATH to succeed")
	}
}
