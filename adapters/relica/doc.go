// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package provides production-ready implementations of all chime repository interfaces:
//   - SubscriptionRepository
//   - FiringRepository
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/mateteriya/chime"
//	    "github.com/mateteriya/chime/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	// Open database connection
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/chime_db?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create repositories (driverName should be "mysql", "postgres", or "sqlite3")
//	repos := relica.NewRepositories(db, "mysql")
//
//	// Create services
//	scheduler, err := chime.NewScheduler(
//	    chime.WithRepositories(repos.Subscription, repos.Firing),
//	    chime.WithDispatcher(dispatcher),
//	    chime.WithTriggers(triggers...),
//	    chime.WithLogger(logger),
//	)
package relica
