// Package export writes debug transcripts and record pages to disk as
// Markdown or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/pkg/types"
)

const (
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
)

// Transcript is a debug session with its turns in submission order.
type Transcript struct {
	Session types.ReplaySession
	Turns   []types.ReplayRecord
}

// RecordPage is one fetched page of a session's records.
type RecordPage struct {
	SessionID  string
	Pagination types.Pagination
	Records    []types.Record
}

// WriteTranscript renders t in every format and returns the written paths.
func WriteTranscript(t *Transcript, outputDir string, formats []string) ([]string, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	base := "debug-" + fileSafe(t.Session.ID)
	return write(outputDir, base, formats, func(format string) ([]byte, error) {
		if format == FormatYAML {
			return transcriptYAML(t)
		}
		return []byte(transcriptMarkdown(t)), nil
	})
}

// WriteRecords renders p in every format and returns the written paths.
func WriteRecords(p *RecordPage, outputDir string, formats []string) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("record page is nil")
	}
	base := fmt.Sprintf("records-%s-p%d", fileSafe(p.SessionID), p.Pagination.Current)
	return write(outputDir, base, formats, func(format string) ([]byte, error) {
		if format == FormatYAML {
			return recordsYAML(p)
		}
		return []byte(recordsMarkdown(p)), nil
	})
}

func write(outputDir, base string, formats []string, render func(format string) ([]byte, error)) ([]string, error) {
	if len(formats) == 0 {
		formats = []string{FormatMarkdown}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		var ext string
		switch format {
		case FormatMarkdown:
			ext = ".md"
		case FormatYAML:
			ext = ".yaml"
		default:
			return paths, fmt.Errorf("unknown export format %q", format)
		}
		data, err := render(format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(outputDir, base+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func transcriptMarkdown(t *Transcript) string {
	b := &strings.Builder{}
	s := t.Session
	fmt.Fprintf(b, "# %s\n\n", s.Name)
	fmt.Fprintf(b, "- Debug session: `%s`\n", s.ID)
	fmt.Fprintf(b, "- Branched from: `%s` at turn %d\n", s.OriginalSessionID, s.StartTurnNumber)
	fmt.Fprintf(b, "- Status: %s\n", s.Status)
	if !s.CreatedAt.IsZero() {
		fmt.Fprintf(b, "- Created: %s\n", s.CreatedAt.Format(time.RFC3339))
	}
	for _, turn := range t.Turns {
		fmt.Fprintf(b, "\n## Turn %d (%s)\n\n", turn.TurnNumber, turn.Status)
		if turn.Provider != "" || turn.Model != "" {
			fmt.Fprintf(b, "Provider: %s, model: %s\n\n", orDash(turn.Provider), orDash(turn.Model))
		}
		if user := compose.UserText(turn.Request); user != "" {
			fmt.Fprintf(b, "**User:** %s\n\n", user)
		}
		if turn.Status == types.StatusSuccess {
			if reply := compose.ReplyText(turn.Response); reply != "" {
				fmt.Fprintf(b, "**Assistant:** %s\n\n", reply)
			}
		} else if turn.ErrorMsg != "" {
			fmt.Fprintf(b, "**Error:** %s\n\n", turn.ErrorMsg)
		}
		writeFenced(b, "Request", turn.Request)
		writeFenced(b, "Response", turn.Response)
	}
	return b.String()
}

func recordsMarkdown(p *RecordPage) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "# Session %s\n\n", p.SessionID)
	fmt.Fprintf(b, "Page %d, %d records of %d total.\n\n", p.Pagination.Current, len(p.Records), p.Pagination.Total)
	fmt.Fprintln(b, "| Turn | Status | Record | Created |")
	fmt.Fprintln(b, "|---|---|---|---|")
	for _, r := range p.Records {
		fmt.Fprintf(b, "| %d | %s | `%s` | %s |\n", r.TurnNumber, r.Status, r.ID, r.CreatedAt.Format(time.RFC3339))
	}
	for _, r := range p.Records {
		fmt.Fprintf(b, "\n## Turn %d `%s`\n\n", r.TurnNumber, r.ID)
		if r.ErrorMsg != "" {
			fmt.Fprintf(b, "**Error:** %s\n\n", r.ErrorMsg)
		}
		writeFenced(b, "Request", r.Request)
		writeFenced(b, "Response", r.Response)
	}
	return b.String()
}

func writeFenced(b *strings.Builder, title, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	lang := "json"
	if !json.Valid([]byte(raw)) {
		lang = "text"
	}
	fmt.Fprintf(b, "### %s\n\n```%s\n%s\n```\n\n", title, lang, compose.Pretty(raw))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type yamlTurn struct {
	Turn      int       `yaml:"turn"`
	Status    string    `yaml:"status"`
	Provider  string    `yaml:"provider,omitempty"`
	Model     string    `yaml:"model,omitempty"`
	Error     string    `yaml:"error,omitempty"`
	Config    any       `yaml:"config,omitempty"`
	Request   any       `yaml:"request,omitempty"`
	Response  any       `yaml:"response,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

type yamlTranscript struct {
	ID                string     `yaml:"id"`
	Name              string     `yaml:"name"`
	OriginalSessionID string     `yaml:"original_session_id"`
	StartTurnNumber   int        `yaml:"start_turn_number"`
	Status            string     `yaml:"status"`
	Turns             []yamlTurn `yaml:"turns"`
}

type yamlRecord struct {
	ID        string    `yaml:"id"`
	Turn      int       `yaml:"turn"`
	Status    string    `yaml:"status"`
	Error     string    `yaml:"error,omitempty"`
	Request   any       `yaml:"request,omitempty"`
	Response  any       `yaml:"response,omitempty"`
	Metadata  any       `yaml:"metadata,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

type yamlRecordPage struct {
	SessionID string       `yaml:"session_id"`
	Page      int          `yaml:"page"`
	PageSize  int          `yaml:"page_size"`
	Total     int          `yaml:"total"`
	Records   []yamlRecord `yaml:"records"`
}

func transcriptYAML(t *Transcript) ([]byte, error) {
	doc := yamlTranscript{
		ID:                t.Session.ID,
		Name:              t.Session.Name,
		OriginalSessionID: t.Session.OriginalSessionID,
		StartTurnNumber:   t.Session.StartTurnNumber,
		Status:            t.Session.Status,
		Turns:             make([]yamlTurn, 0, len(t.Turns)),
	}
	for _, r := range t.Turns {
		doc.Turns = append(doc.Turns, yamlTurn{
			Turn:      r.TurnNumber,
			Status:    r.Status,
			Provider:  r.Provider,
			Model:     r.Model,
			Error:     r.ErrorMsg,
			Config:    structured(r.Config),
			Request:   structured(r.Request),
			Response:  structured(r.Response),
			CreatedAt: r.CreatedAt,
		})
	}
	return yaml.Marshal(doc)
}

func recordsYAML(p *RecordPage) ([]byte, error) {
	doc := yamlRecordPage{
		SessionID: p.SessionID,
		Page:      p.Pagination.Current,
		PageSize:  p.Pagination.PageSize,
		Total:     p.Pagination.Total,
		Records:   make([]yamlRecord, 0, len(p.Records)),
	}
	for _, r := range p.Records {
		doc.Records = append(doc.Records, yamlRecord{
			ID:        r.ID,
			Turn:      r.TurnNumber,
			Status:    r.Status,
			Error:     r.ErrorMsg,
			Request:   structured(r.Request),
			Response:  structured(r.Response),
			Metadata:  structured(r.Metadata),
			CreatedAt: r.CreatedAt,
		})
	}
	return yaml.Marshal(doc)
}

// structured decodes JSON text so it renders as YAML structure. Non-JSON
// text is kept as a string; empty text is dropped.
func structured(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func fileSafe(s string) string {
	if s == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
