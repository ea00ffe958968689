package filter

import (
	"encoding/json"
	"strings"

	"github.com/yourorg/tracectl/internal/config"
	"github.com/yourorg/tracectl/pkg/types"
)

// SanitizeConfig is an alias of config.SanitizeConfig.
type SanitizeConfig = config.SanitizeConfig

// Sanitizer redacts sensitive JSON fields in stored request, response and
// metadata text before it is shown or exported.
type Sanitizer struct {
	fields      map[string]struct{}
	replacement string
}

// NewSanitizer builds a Sanitizer from cfg. Field names match case-insensitively.
func NewSanitizer(cfg SanitizeConfig) *Sanitizer {
	return &Sanitizer{fields: toLowerSet(cfg.BodyFields), replacement: cfg.Replacement}
}

// Records returns redacted copies of records.
func (s *Sanitizer) Records(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, r := range records {
		out[i] = s.Record(r)
	}
	return out
}

// Record returns a redacted copy of r.
func (s *Sanitizer) Record(r types.Record) types.Record {
	r.Request = s.Body(r.Request)
	r.Response = s.Body(r.Response)
	r.Metadata = s.Body(r.Metadata)
	return r
}

// ReplayRecords returns redacted copies of debug turns.
func (s *Sanitizer) ReplayRecords(records []types.ReplayRecord) []types.ReplayRecord {
	out := make([]types.ReplayRecord, len(records))
	for i, r := range records {
		r.Request = s.Body(r.Request)
		r.Response = s.Body(r.Response)
		r.Config = s.Body(r.Config)
		out[i] = r
	}
	return out
}

// Body redacts a JSON document. Text that is not JSON is returned unchanged.
func (s *Sanitizer) Body(body string) string {
	if len(s.fields) == 0 || strings.TrimSpace(body) == "" {
		return body
	}
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	if !s.redact(v) {
		return body
	}
	out, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return string(out)
}

// redact rewrites v in place and reports whether anything changed.
func (s *Sanitizer) redact(v interface{}) bool {
	changed := false
	switch val := v.(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, ok := s.fields[strings.ToLower(k)]; ok {
				val[k] = s.replacement
				changed = true
				continue
			}
			if s.redact(v2) {
				changed = true
			}
		}
	case []interface{}:
		for i := range val {
			if s.redact(val[i]) {
				changed = true
			}
		}
	}
	return changed
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
