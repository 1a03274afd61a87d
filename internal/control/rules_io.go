package control

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/store"
)

// ExportRules returns folderID's rules as the JSON shape §6 "Rule
// export/import" specifies: the same record as persisted, minus IDs and
// timestamps (ID and folder ID are emptied, timestamps set to zero).
func ExportRules(rules *store.RuleRepo, folderID domain.FolderID) ([]byte, error) {
	list, err := rules.ListByFolder(folderID, false)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].ID = ""
		list[i].FolderID = ""
		list[i].CreatedAt = time.Time{}
		list[i].UpdatedAt = time.Time{}
	}
	return json.MarshalIndent(list, "", "  ")
}

// ImportRules parses an exported rule array and creates each rule under
// folderID, letting RuleRepo.Create regenerate IDs and timestamps and
// rewriting folder_id to the target folder as §6 specifies.
func ImportRules(rules *store.RuleRepo, folderID domain.FolderID, data []byte) ([]domain.Rule, error) {
	var incoming []domain.Rule
	if err := json.Unmarshal(data, &incoming); err != nil {
		return nil, fmt.Errorf("parsing rule export: %w", err)
	}

	created := make([]domain.Rule, 0, len(incoming))
	for _, r := range incoming {
		r.ID = ""
		r.FolderID = folderID
		saved, err := rules.Create(r)
		if err != nil {
			return created, fmt.Errorf("importing rule %q: %w", r.Name, err)
		}
		created = append(created, saved)
	}
	return created, nil
}
