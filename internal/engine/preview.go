package engine

import (
	"github.com/filedispatch/agent/internal/condition"
	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/fileinfo"
	"github.com/filedispatch/agent/internal/store"
)

// PreviewMatch is one file/rule pairing a dry run would have acted on.
type PreviewMatch struct {
	Path           string
	RuleID         domain.RuleID
	RuleName       string
	Captures       map[string]string
	StopProcessing bool
}

// Preview implements the supplemented "dry-run preview" capability: it
// walks the same rule-lookup and condition-evaluation path runRule does,
// but never calls the executor and never touches the match registry, so
// running it repeatedly against an unchanged folder always reports the
// same matches. Grounded on the original's dry_run Settings flag implying
// evaluate-without-mutate is first-class, not UI-only.
func Preview(rules *store.RuleRepo, folderID domain.FolderID, paths []string) ([]PreviewMatch, error) {
	ruleList, err := rules.ListByFolder(folderID, true)
	if err != nil {
		return nil, err
	}

	var matches []PreviewMatch
	for _, path := range paths {
		info, err := fileinfo.FromPath(path)
		if err != nil {
			continue
		}
		for _, rule := range ruleList {
			result, err := condition.Evaluate(rule, info)
			if err != nil || !result.Matched {
				continue
			}
			matches = append(matches, PreviewMatch{
				Path:           path,
				RuleID:         rule.ID,
				RuleName:       rule.Name,
				Captures:       result.Captures,
				StopProcessing: rule.StopProcessing,
			})
			if rule.StopProcessing {
				break
			}
		}
	}
	return matches, nil
}
