// Package alerts provides price alert persistence and evaluation.
package alerts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Direction says which side of the threshold fires the alert.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool {
	return d == Above || d == Below
}

// Alert is a one-shot price threshold watch on a single asset.
type Alert struct {
	ID          string     `json:"id"`
	AssetID     string     `json:"assetId"`
	Direction   Direction  `json:"direction"`
	Threshold   float64    `json:"threshold"`
	Triggered   bool       `json:"triggered"`
	TriggeredAt *time.Time `json:"triggeredAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Repository handles alert persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alert repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "alert_repository").Logger(),
	}
}

const alertColumns = `id, asset_id, direction, threshold, triggered, triggered_at, created_at`

// List returns all alerts, oldest first.
func (r *Repository) List() ([]Alert, error) {
	rows, err := r.db.Query(`SELECT ` + alertColumns + ` FROM price_alerts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]Alert, 0)
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.AssetID, &a.Direction, &a.Threshold,
			&a.Triggered, &a.TriggeredAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListArmed returns alerts that have not fired yet.
func (r *Repository) ListArmed() ([]Alert, error) {
	rows, err := r.db.Query(`SELECT ` + alertColumns + ` FROM price_alerts WHERE triggered = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query armed alerts: %w", err)
	}
	defer rows.Close()

	out := make([]Alert, 0)
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.AssetID, &a.Direction, &a.Threshold,
			&a.Triggered, &a.TriggeredAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new (armed) alert.
func (r *Repository) Create(a Alert) (Alert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Triggered = false
	a.TriggeredAt = nil
	a.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO price_alerts (id, asset_id, direction, threshold, triggered, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		a.ID, a.AssetID, a.Direction, a.Threshold, a.CreatedAt)
	if err != nil {
		return Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}

	r.log.Debug().Str("alert_id", a.ID).Str("asset_id", a.AssetID).Msg("Alert created")
	return a, nil
}

// MarkTriggered flips an alert to triggered.
func (r *Repository) MarkTriggered(id string, at time.Time) error {
	_, err := r.db.Exec(
		`UPDATE price_alerts SET triggered = 1, triggered_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert triggered: %w", err)
	}
	return nil
}

// Delete removes an alert.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM price_alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %s not found", id)
	}
	return nil
}
