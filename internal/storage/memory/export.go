package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/klauspost/compress/gzip"
)

// now is replaced in tests.
var now = time.Now

// AuditExport is the root JSON structure of a session file
type AuditExport struct {
	Session         core.Session          `json:"session"`
	Summary         []KindSummary         `json:"summary"`
	Decisions       []core.DecisionRecord `json:"decisions"`
	ConfigRevisions []core.ConfigRevision `json:"configRevisions"`
}

// KindSummary counts decisions per object kind
type KindSummary struct {
	Kind    string `json:"kind"`
	Allowed int    `json:"allowed"`
	Denied  int    `json:"denied"`
}

// exportJSON writes the session data to a (gzipped) JSON file. Caller holds mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := sanitize(b.session.MissionName)
	if name == "" {
		name = sanitize(b.session.WorldName)
	}
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() AuditExport {
	export := AuditExport{
		Session:         *b.session,
		Summary:         make([]KindSummary, 0),
		Decisions:       make([]core.DecisionRecord, len(b.decisions)),
		ConfigRevisions: make([]core.ConfigRevision, len(b.revisions)),
	}
	copy(export.Decisions, b.decisions)
	copy(export.ConfigRevisions, b.revisions)

	byKind := map[string]*KindSummary{}
	for _, d := range b.decisions {
		s, ok := byKind[d.Candidate.Kind]
		if !ok {
			s = &KindSummary{Kind: d.Candidate.Kind}
			byKind[d.Candidate.Kind] = s
		}
		if d.Decision.Allowed {
			s.Allowed++
		} else {
			s.Denied++
		}
	}
	for _, s := range byKind {
		export.Summary = append(export.Summary, *s)
	}
	sort.Slice(export.Summary, func(i, j int) bool {
		return export.Summary[i].Kind < export.Summary[j].Kind
	})

	return export
}

func writeExport(path string, data AuditExport, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = gz
	}

	return json.NewEncoder(w).Encode(data)
}

var unsafeChars = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

func sanitize(name string) string {
	return unsafeChars.Replace(strings.TrimSpace(name))
}
