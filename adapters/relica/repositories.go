package relica

import (
	"database/sql"

	"github.com/mateteriya/chime"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Subscription chime.SubscriptionRepository
	Firing       chime.FiringRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "chime_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepository(db, driverName),
		Firing:       NewFiringRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepositoryWithPrefix(db, driverName, prefix),
		Firing:       NewFiringRepositoryWithPrefix(db, driverName, prefix),
	}
}
