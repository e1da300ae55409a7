// Package portfolio provides portfolio persistence and the dashboard
// service that assembles the derived views for one portfolio.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
)

// Repository handles portfolio persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "portfolio_repository").Logger(),
	}
}

// List returns all portfolios, oldest first.
func (r *Repository) List() ([]domain.Portfolio, error) {
	rows, err := r.db.Query(`SELECT id, name, description, created_at FROM portfolios ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Portfolio, 0)
	for rows.Next() {
		var p domain.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one portfolio by ID.
func (r *Repository) Get(id string) (domain.Portfolio, error) {
	var p domain.Portfolio
	err := r.db.QueryRow(
		`SELECT id, name, description, created_at FROM portfolios WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Portfolio{}, fmt.Errorf("portfolio %s not found", id)
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return p, nil
}

// Create inserts a new portfolio.
func (r *Repository) Create(p domain.Portfolio) (domain.Portfolio, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO portfolios (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.CreatedAt)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	r.log.Debug().Str("portfolio_id", p.ID).Msg("Portfolio created")
	return p, nil
}

// Delete removes a portfolio; its assets cascade.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s not found", id)
	}
	return nil
}
