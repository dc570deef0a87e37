package relica

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/coregx/relica"
	"github.com/mateteriya/chime"
	"github.com/mateteriya/chime/model"
)

// FiringRepository implements chime.FiringRepository using Relica ORM.
//
// The de-duplication contract rests on the UNIQUE(trigger_id, owner_id,
// civil_date) index: Record inserts blindly and reports a constraint
// violation as created=false, which is what makes the claim safe across
// concurrent workers and multiple scheduler instances.
type FiringRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewFiringRepository creates a new FiringRepository with default table prefix.
func NewFiringRepository(sqlDB *sql.DB, driverName string) *FiringRepository {
	return &FiringRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "chime_"}
}

// NewFiringRepositoryWithPrefix creates a new FiringRepository with custom table prefix.
func NewFiringRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *FiringRepository {
	return &FiringRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *FiringRepository) tableName() string {
	return r.tablePrefix + "firing"
}

// Record inserts the firing, claiming the (trigger, owner, civil date)
// occurrence. Returns created=false when another insert already claimed it.
func (r *FiringRepository) Record(ctx context.Context, m model.Firing) (bool, error) {
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to record firing", err)
	}
	return true, nil
}

// Exists reports whether the occurrence has already been claimed.
func (r *FiringRepository) Exists(ctx context.Context, triggerID, ownerID, civilDate string) (bool, error) {
	var firing model.Firing
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		Where("trigger_id = ? AND owner_id = ? AND civil_date = ?", triggerID, ownerID, civilDate).
		One(&firing)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to look up firing", err)
	}
	return true, nil
}

// UpdateOutcome records the classified delivery result on a claimed firing.
func (r *FiringRepository) UpdateOutcome(ctx context.Context, triggerID, ownerID, civilDate, outcome string) error {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"outcome": outcome,
		}).
		Where("trigger_id = ? AND owner_id = ? AND civil_date = ?", triggerID, ownerID, civilDate).
		WithContext(ctx).
		Execute()
	if err != nil {
		return chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to update firing outcome", err)
	}
	return nil
}

// PurgeOlderThan deletes firing records attempted before the cutoff and
// returns how many were removed.
func (r *FiringRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var firings []model.Firing
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).
		Where("attempted_at < ?", cutoff).
		All(&firings)
	if err != nil {
		return 0, chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to find expired firings", err)
	}

	purged := 0
	for i := range firings {
		// Delete using Model() API - auto WHERE id = ?
		if err := r.db.WithContext(ctx).Model(&firings[i]).Table(r.tableName()).Delete(); err != nil {
			return purged, chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to delete expired firing", err)
		}
		purged++
	}
	return purged, nil
}

// isUniqueViolation detects a unique-constraint error from any of the three
// supported drivers. None of them export a portable sentinel, so this matches
// the driver message text: MySQL error 1062, PostgreSQL SQLSTATE 23505, and
// SQLite's constraint message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
