package chime

import "embed"

// MigrationFiles contains all SQL migration files embedded in the binary.
// Users can access these files programmatically to apply migrations using
// their preferred migration tool (goose, golang-migrate, atlas, etc.)
//
// Example with goose:
//
//	import (
//	    "github.com/pressly/goose/v3"
//	    chime "github.com/mateteriya/chime"
//	)
//
//	goose.SetBaseFS(chime.MigrationFiles)
//	if err := goose.Up(db, "migrations"); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS
