// Package condition implements the Condition Evaluator (§4.3): a pure
// function from (Rule, FileInfo) to (matched, captures), grounded on the
// original implementation's core/engine.rs evaluate_* functions.
package condition

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// Result is the outcome of evaluating a ConditionGroup or Condition.
type Result struct {
	Matched  bool
	Captures map[string]string
}

// Evaluate runs a rule's root condition group against info (§4.3).
func Evaluate(rule domain.Rule, info domain.FileInfo) (Result, error) {
	return evaluateGroup(rule.Conditions, info)
}

func evaluateGroup(group domain.ConditionGroup, info domain.FileInfo) (Result, error) {
	switch group.Type {
	case domain.MatchAll:
		captures := map[string]string{}
		for _, c := range group.Conditions {
			r, err := evaluateCondition(c, info)
			if err != nil {
				return Result{}, err
			}
			if !r.Matched {
				return Result{Matched: false}, nil
			}
			for k, v := range r.Captures {
				captures[k] = v
			}
		}
		return Result{Matched: true, Captures: captures}, nil

	case domain.MatchAny:
		for _, c := range group.Conditions {
			r, err := evaluateCondition(c, info)
			if err != nil {
				return Result{}, err
			}
			if r.Matched {
				return Result{Matched: true, Captures: r.Captures}, nil
			}
		}
		return Result{Matched: false}, nil

	case domain.MatchNone:
		for _, c := range group.Conditions {
			r, err := evaluateCondition(c, info)
			if err != nil {
				return Result{}, err
			}
			if r.Matched {
				return Result{Matched: false}, nil
			}
		}
		// Vacuous truth for empty groups and groups where nothing matched.
		return Result{Matched: true}, nil

	default:
		return Result{}, fmt.Errorf("unknown match type %q", group.Type)
	}
}

func evaluateCondition(c domain.Condition, info domain.FileInfo) (Result, error) {
	switch c.Kind {
	case domain.ConditionName:
		return evaluateString(c, info.Stem)
	case domain.ConditionFullName:
		return evaluateString(c, info.FullName)
	case domain.ConditionExtension:
		return evaluateString(c, info.Ext)
	case domain.ConditionSize:
		return evaluateSize(c, info.Size)
	case domain.ConditionDateCreated:
		return evaluateDate(c, info.Created)
	case domain.ConditionDateModified:
		return evaluateDate(c, info.Modified)
	case domain.ConditionDateAdded:
		return evaluateDate(c, info.Added)
	case domain.ConditionKindOf:
		matched := info.Kind == c.KindValue
		if c.Negate {
			matched = !matched
		}
		return Result{Matched: matched}, nil
	case domain.ConditionShellScript:
		return evaluateShell(c, info)
	case domain.ConditionNested:
		if c.Nested == nil {
			return Result{}, fmt.Errorf("nested condition has no group")
		}
		return evaluateGroup(*c.Nested, info)
	default:
		return Result{}, fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

func evaluateString(c domain.Condition, target string) (Result, error) {
	value := c.StringValue
	cmpTarget := target
	if !c.CaseSensitive {
		cmpTarget = strings.ToLower(cmpTarget)
		value = strings.ToLower(value)
	}

	switch c.StringOperator {
	case domain.OpIs:
		return Result{Matched: cmpTarget == value}, nil
	case domain.OpIsNot:
		return Result{Matched: cmpTarget != value}, nil
	case domain.OpContains:
		return Result{Matched: strings.Contains(cmpTarget, value)}, nil
	case domain.OpDoesNotContain:
		return Result{Matched: !strings.Contains(cmpTarget, value)}, nil
	case domain.OpStartsWith:
		return Result{Matched: strings.HasPrefix(cmpTarget, value)}, nil
	case domain.OpEndsWith:
		return Result{Matched: strings.HasSuffix(cmpTarget, value)}, nil
	case domain.OpMatches, domain.OpDoesNotMatch:
		pattern := c.StringValue
		if !c.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Result{}, fmt.Errorf("compiling regex %q: %w", c.StringValue, err)
		}
		m := re.FindStringSubmatch(target)
		matched := m != nil
		if c.StringOperator == domain.OpDoesNotMatch {
			return Result{Matched: !matched}, nil
		}
		if !matched {
			return Result{Matched: false}, nil
		}
		captures := map[string]string{}
		for i := 1; i < len(m); i++ {
			captures[strconv.Itoa(i)] = m[i]
		}
		return Result{Matched: true, Captures: captures}, nil
	default:
		return Result{}, fmt.Errorf("unknown string operator %q", c.StringOperator)
	}
}

func evaluateSize(c domain.Condition, size int64) (Result, error) {
	mult := c.SizeUnit.Multiplier()
	value := int64(c.SizeValue * float64(mult))
	valueMax := int64(c.SizeValueMax * float64(mult))

	switch c.SizeOperator {
	case domain.SizeEquals:
		return Result{Matched: size == value}, nil
	case domain.SizeNotEquals:
		return Result{Matched: size != value}, nil
	case domain.SizeGreaterThan:
		return Result{Matched: size > value}, nil
	case domain.SizeLessThan:
		return Result{Matched: size < value}, nil
	case domain.SizeGreaterEqual:
		return Result{Matched: size >= value}, nil
	case domain.SizeLessOrEqual:
		return Result{Matched: size <= value}, nil
	case domain.SizeBetween:
		return Result{Matched: size >= value && size <= valueMax}, nil
	default:
		return Result{}, fmt.Errorf("unknown size operator %q", c.SizeOperator)
	}
}

func dateWindow(amount int, unit domain.DateUnit) time.Duration {
	switch unit {
	case domain.UnitMinutes:
		return time.Duration(amount) * time.Minute
	case domain.UnitHours:
		return time.Duration(amount) * time.Hour
	case domain.UnitDays:
		return time.Duration(amount) * 24 * time.Hour
	case domain.UnitWeeks:
		return time.Duration(amount) * 7 * 24 * time.Hour
	case domain.UnitMonths:
		return time.Duration(amount) * 30 * 24 * time.Hour
	case domain.UnitYears:
		return time.Duration(amount) * 365 * 24 * time.Hour
	default:
		return 0
	}
}

func evaluateDate(c domain.Condition, target time.Time) (Result, error) {
	switch c.DateOperator {
	case domain.DateIs, domain.DateIsBefore, domain.DateIsAfter, domain.DateBetween:
		targetDate := target.UTC().Truncate(24 * time.Hour)
		val, err := time.Parse("2006-01-02", c.DateValue)
		if err != nil {
			return Result{}, fmt.Errorf("parsing date %q: %w", c.DateValue, err)
		}
		switch c.DateOperator {
		case domain.DateIs:
			return Result{Matched: targetDate.Equal(val)}, nil
		case domain.DateIsBefore:
			return Result{Matched: targetDate.Before(val)}, nil
		case domain.DateIsAfter:
			return Result{Matched: targetDate.After(val)}, nil
		case domain.DateBetween:
			valMax, err := time.Parse("2006-01-02", c.DateValueMax)
			if err != nil {
				return Result{}, fmt.Errorf("parsing date %q: %w", c.DateValueMax, err)
			}
			return Result{Matched: !targetDate.Before(val) && !targetDate.After(valMax)}, nil
		}
	case domain.DateInTheLast, domain.DateNotInTheLast:
		window := dateWindow(c.DateAmount, c.DateUnit)
		cutoff := time.Now().UTC().Add(-window)
		inWindow := target.UTC().After(cutoff)
		if c.DateOperator == domain.DateNotInTheLast {
			return Result{Matched: !inWindow}, nil
		}
		return Result{Matched: inWindow}, nil
	}
	return Result{}, fmt.Errorf("unknown date operator %q", c.DateOperator)
}

func evaluateShell(c domain.Condition, info domain.FileInfo) (Result, error) {
	shell, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}

	cmd := exec.Command(shell, flag, c.ShellCommand)
	cmd.Env = append(os.Environ(), "FILE_PATH="+info.Path)
	err := cmd.Run()
	return Result{Matched: err == nil}, nil
}
