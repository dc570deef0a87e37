package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/relica"
	"github.com/mateteriya/chime"
	"github.com/mateteriya/chime/model"
)

// SubscriptionRepository implements chime.SubscriptionRepository using Relica ORM.
type SubscriptionRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSubscriptionRepository creates a new SubscriptionRepository with default table prefix.
func NewSubscriptionRepository(sqlDB *sql.DB, driverName string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "chime_"}
}

// NewSubscriptionRepositoryWithPrefix creates a new SubscriptionRepository with custom table prefix.
func NewSubscriptionRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SubscriptionRepository {
	return &SubscriptionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *SubscriptionRepository) tableName() string {
	return r.tablePrefix + "subscription"
}

// subscriptionRow flattens the nested Keys struct into scalar columns.
type subscriptionRow struct {
	ID        string
	OwnerID   string
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

func toRow(m model.Subscription) subscriptionRow {
	return subscriptionRow{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Endpoint:  m.Endpoint,
		P256dh:    m.Keys.P256dh,
		Auth:      m.Keys.Auth,
		CreatedAt: m.CreatedAt,
	}
}

func (row subscriptionRow) toModel() model.Subscription {
	return model.Subscription{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Endpoint:  row.Endpoint,
		Keys:      model.Keys{P256dh: row.P256dh, Auth: row.Auth},
		CreatedAt: row.CreatedAt,
	}
}

// Upsert stores the subscription, replacing any existing one for the owner.
// A lookup plus conditional insert/update keeps the statement portable across
// MySQL, PostgreSQL, and SQLite; the unique index on owner_id backstops races.
func (r *SubscriptionRepository) Upsert(ctx context.Context, m model.Subscription) error {
	row := toRow(m)

	var existing subscriptionRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("owner_id = ?", m.OwnerID).One(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to look up subscription", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		// Insert using Model() API
		if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName()).Insert(); err != nil {
			return chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to insert subscription", err)
		}
		return nil
	}

	_, err = r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"endpoint":   row.Endpoint,
			"p256dh":     row.P256dh,
			"auth":       row.Auth,
			"created_at": row.CreatedAt,
		}).
		Where("owner_id = ?", m.OwnerID).
		WithContext(ctx).
		Execute()
	if err != nil {
		return chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to update subscription", err)
	}

	return nil
}

// Get retrieves an owner's subscription.
func (r *SubscriptionRepository) Get(ctx context.Context, ownerID string) (model.Subscription, error) {
	var row subscriptionRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("owner_id = ?", ownerID).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscription{}, chime.ErrNoData
	}
	if err != nil {
		return model.Subscription{}, chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to load subscription", err)
	}
	return row.toModel(), nil
}

// Remove deletes an owner's subscription. Removing an absent owner is a no-op.
func (r *SubscriptionRepository) Remove(ctx context.Context, ownerID string) error {
	var row subscriptionRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("owner_id = ?", ownerID).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to look up subscription", err)
	}

	// Delete using Model() API - auto WHERE id = ?
	if err := r.db.WithContext(ctx).Model(&row).Table(r.tableName()).Delete(); err != nil {
		return chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to delete subscription", err)
	}
	return nil
}

// ListAll retrieves every live subscription for a scheduler tick snapshot.
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]model.Subscription, error) {
	var rows []subscriptionRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).OrderBy("created_at ASC").All(&rows)
	if err != nil {
		return nil, chime.NewErrorWithCause(chime.ErrCodeDatabase, "failed to list subscriptions", err)
	}
	if len(rows) == 0 {
		return nil, chime.ErrNoData
	}

	subs := make([]model.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toModel())
	}
	return subs, nil
}
