package filter

import (
	"strings"

	"github.com/yourorg/tracectl/pkg/types"
)

// StatusAll disables the status criterion.
const StatusAll = "all"

// Criteria is a view filter over a fetched page of records.
type Criteria struct {
	Search string
	Status string
}

// Active reports whether c would hide anything.
func (c Criteria) Active() bool {
	return strings.TrimSpace(c.Search) != "" || !matchesAll(c.Status)
}

// Records returns the records matching both the status and the search text,
// in input order. The input slice is never modified.
func Records(records []types.Record, c Criteria) []types.Record {
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if !matchesAll(c.Status) && !strings.EqualFold(r.Status, c.Status) {
			continue
		}
		if needle != "" && !containsFold(needle, r.ID, r.Request, r.Response) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sessions returns the sessions whose name or id contains search.
func Sessions(sessions []types.Session, search string) []types.Session {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]types.Session, 0, len(sessions))
	for _, s := range sessions {
		if needle != "" && !containsFold(needle, s.Name, s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchesAll(status string) bool {
	status = strings.TrimSpace(status)
	return status == "" || strings.EqualFold(status, StatusAll)
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
