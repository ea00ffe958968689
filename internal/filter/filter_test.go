package filter

import (
	"strings"
	"testing"

	"github.com/yourorg/tracectl/pkg/types"
)

func sampleRecords() []types.Record {
	return []types.Record{
		{ID: "rec-1", Status: types.StatusSuccess, Request: `{"messages":[{"role":"user","content":"Weather in Paris"}]}`, Response: `{"choices":[]}`},
		{ID: "rec-2", Status: types.StatusError, Request: `{"messages":[{"role":"user","content":"hello"}]}`, Response: ``},
		{ID: "rec-3", Status: types.StatusPending, Request: `{"messages":[]}`, Response: ``},
		{ID: "rec-4", Status: types.StatusSuccess, Request: `{"messages":[]}`, Response: `{"choices":[{"message":{"content":"paris is sunny"}}]}`},
	}
}

func TestRecordsStatusAndSearchProperty(t *testing.T) {
	records := sampleRecords()
	for _, status := range []string{StatusAll, types.StatusSuccess, types.StatusError, types.StatusPending} {
		for _, search := range []string{"", "paris", "REC-2", "nothing-matches"} {
			out := Records(records, Criteria{Status: status, Search: search})

			want := 0
			for _, r := range records {
				statusOK := status == StatusAll || r.Status == status
				text := strings.ToLower(r.ID + "\x00" + r.Request + "\x00" + r.Response)
				searchOK := search == "" || strings.Contains(text, strings.ToLower(search))
				if statusOK && searchOK {
					want++
				}
			}
			if len(out) != want {
				t.Fatalf("status=%q search=%q: expected %d records, got %d", status, search, want, len(out))
			}
			for _, r := range out {
				if status != StatusAll && r.Status != status {
					t.Fatalf("status=%q: record %s has status %s", status, r.ID, r.Status)
				}
			}
		}
	}
}

func TestRecordsSearchIsCaseInsensitive(t *testing.T) {
	out := Records(sampleRecords(), Criteria{Search: "PARIS"})
	if len(out) != 2 || out[0].ID != "rec-1" || out[1].ID != "rec-4" {
		t.Fatalf("expected rec-1 and rec-4, got %+v", out)
	}
}

func TestRecordsDoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	_ = Records(records, Criteria{Status: types.StatusError})
	if len(records) != 4 || records[0].ID != "rec-1" {
		t.Fatalf("input was modified: %+v", records)
	}
}

func TestCriteriaActive(t *testing.T) {
	if (Criteria{}).Active() || (Criteria{Status: "ALL"}).Active() {
		t.Fatalf("expected empty criteria to be inactive")
	}
	if !(Criteria{Status: types.StatusError}).Active() || !(Criteria{Search: "x"}).Active() {
		t.Fatalf("expected criteria to be active")
	}
}

func TestSessionsSearch(t *testing.T) {
	sessions := []types.Session{{ID: "abc", Name: "Checkout flow"}, {ID: "def", Name: "Support bot"}}
	if out := Sessions(sessions, "checkout"); len(out) != 1 || out[0].ID != "abc" {
		t.Fatalf("expected abc, got %+v", out)
	}
	if out := Sessions(sessions, "DEF"); len(out) != 1 || out[0].ID != "def" {
		t.Fatalf("expected def, got %+v", out)
	}
	if out := Sessions(sessions, ""); len(out) != 2 {
		t.Fatalf("expected all sessions, got %d", len(out))
	}
}
