package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/OCAP2/siegelimit/internal/database"
	gormstorage "github.com/OCAP2/siegelimit/internal/storage/gorm"
	"github.com/OCAP2/siegelimit/pkg/core"

	"github.com/klauspost/compress/gzip"
	"gorm.io/gorm"
)

// sessionExport is the document written by the export command.
type sessionExport struct {
	Session   *core.Session         `json:"session"`
	Decisions []core.DecisionRecord `json:"decisions"`
}

func run(w io.Writer, db *gorm.DB, command string, args []string) error {
	switch command {
	case "sessions":
		limit, err := optionalInt(args, 0, 20)
		if err != nil {
			return err
		}
		return listSessions(w, db, limit)
	case "summary":
		id, err := optionalInt(args, 0, 0)
		if err != nil {
			return err
		}
		return printSummary(w, db, uint(id))
	case "denied":
		id, err := optionalInt(args, 0, 0)
		if err != nil {
			return err
		}
		limit, err := optionalInt(args, 1, 10)
		if err != nil {
			return err
		}
		return printDenied(w, db, uint(id), limit)
	case "export":
		if len(args) < 2 {
			return fmt.Errorf("export needs a session ID and an output path")
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", args[0], err)
		}
		return exportSession(db, uint(id), args[1])
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func optionalInt(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	return v, nil
}

func listSessions(w io.Writer, db *gorm.DB, limit int) error {
	sessions, err := gormstorage.Sessions(db, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWORLD\tMISSION\tSTART\tDURATION")
	for _, s := range sessions {
		duration := "running"
		if !s.EndTime.IsZero() {
			duration = s.EndTime.Sub(s.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.ID, s.WorldName, s.MissionName, s.StartTime.UTC().Format(time.RFC3339), duration)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, db *gorm.DB, sessionID uint) error {
	kinds, err := gormstorage.KindSummaries(db, sessionID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tTOTAL\tALLOWED\tDENIED")
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", k.Kind, k.Total, k.Allowed, k.Denied)
	}
	return tw.Flush()
}

func printDenied(w io.Writer, db *gorm.DB, sessionID uint, limit int) error {
	actors, err := gormstorage.TopDeniedActors(db, sessionID, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTOR\tDENIED")
	for _, a := range actors {
		fmt.Fprintf(tw, "%s\t%d\n", a.ActorID, a.Denied)
	}
	return tw.Flush()
}

func exportSession(db *gorm.DB, sessionID uint, outPath string) error {
	sessions, err := gormstorage.Sessions(db, 0)
	if err != nil {
		return err
	}
	doc := sessionExport{}
	for i := range sessions {
		if sessions[i].ID == sessionID {
			doc.Session = &sessions[i]
			break
		}
	}
	if doc.Session == nil {
		return fmt.Errorf("session %d not found", sessionID)
	}

	doc.Decisions, err = gormstorage.Decisions(db, sessionID)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("error creating export file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(outPath, ".gz") {
		return writeJSON(f, doc)
	}
	gz := gzip.NewWriter(f)
	if err := writeJSON(gz, doc); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

func writeJSON(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func listBackups(w io.Writer, dir string) error {
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
	return nil
}
