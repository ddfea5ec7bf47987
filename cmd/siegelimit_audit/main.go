// Command siegelimit_audit reads back the placement audit trail recorded by
// the sqlite or postgres storage backend.
//
//	siegelimit_audit sessions <db> [limit]
//	siegelimit_audit summary  <db> [sessionID]
//	siegelimit_audit denied   <db> [sessionID] [limit]
//	siegelimit_audit export   <db> <sessionID> <out.json[.gz]>
//	siegelimit_audit backups  <dir>
//
// <db> is a sqlite file, or "postgres" to use the db.* settings of the
// siegelimit.cfg.json in the working directory.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/OCAP2/siegelimit/internal/config"
	"github.com/OCAP2/siegelimit/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	args := os.Args[1:]
	if len(args) < 2 {
		fmt.Println("Usage: siegelimit_audit <sessions|summary|denied|export|backups> <db|dir> [args]")
		os.Exit(2)
	}

	command := strings.ToLower(args[0])
	if command == "backups" {
		if err := listBackups(os.Stdout, args[1]); err != nil {
			logger.Fatal().Err(err).Msg("Failed to list backups")
		}
		return
	}

	mgr := database.NewManager(logger)
	path := args[1]
	if path == "postgres" {
		if err := config.Load("."); err != nil {
			logger.Fatal().Err(err).Msg("Failed to load config")
		}
		path = ""
	}
	if err := mgr.Connect(path); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer mgr.Close()

	if err := run(os.Stdout, mgr.DB, command, args[2:]); err != nil {
		logger.Error().Err(err).Str("command", command).Msg("Command failed")
		mgr.Close()
		os.Exit(1)
	}
}
