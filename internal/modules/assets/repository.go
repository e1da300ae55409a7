package assets

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
)

// Repository handles asset persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new asset repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "asset_repository").Logger(),
	}
}

const assetColumns = `id, portfolio_id, asset_type, symbol, name, quantity,
	purchase_price, current_price, purchase_date, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }) (domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(&a.ID, &a.PortfolioID, &a.AssetType, &a.Symbol, &a.Name,
		&a.Quantity, &a.PurchasePrice, &a.CurrentPrice, &a.PurchaseDate,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListByPortfolio returns every asset in a portfolio, oldest first.
func (r *Repository) ListByPortfolio(portfolioID string) ([]domain.Asset, error) {
	rows, err := r.db.Query(
		`SELECT `+assetColumns+` FROM assets WHERE portfolio_id = ? ORDER BY created_at, id`,
		portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAll returns every asset across all portfolios. Used by the scheduled
// price refresh job.
func (r *Repository) ListAll() ([]domain.Asset, error) {
	rows, err := r.db.Query(`SELECT ` + assetColumns + ` FROM assets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns a single asset by ID.
func (r *Repository) Get(id string) (domain.Asset, error) {
	row := r.db.QueryRow(`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return domain.Asset{}, fmt.Errorf("asset %s not found", id)
	}
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// IDs returns the set of asset IDs belonging to a portfolio. The realtime
// channel manager uses this to decide which price events to accept.
func (r *Repository) IDs(portfolioID string) ([]string, error) {
	rows, err := r.db.Query(`SELECT id FROM assets WHERE portfolio_id = ?`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a new asset and returns it with generated fields filled in.
func (r *Repository) Create(a domain.Asset) (domain.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.AssetType = a.AssetType.Normalize()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.PurchaseDate.IsZero() {
		a.PurchaseDate = now
	}

	_, err := r.db.Exec(`
		INSERT INTO assets (id, portfolio_id, asset_type, symbol, name, quantity,
			purchase_price, current_price, purchase_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PortfolioID, a.AssetType, a.Symbol, a.Name, a.Quantity,
		a.PurchasePrice, a.CurrentPrice, a.PurchaseDate, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to insert asset: %w", err)
	}

	r.log.Debug().Str("asset_id", a.ID).Str("portfolio_id", a.PortfolioID).Msg("Asset created")
	return a, nil
}

// Update rewrites the mutable fields of an asset.
func (r *Repository) Update(a domain.Asset) (domain.Asset, error) {
	a.AssetType = a.AssetType.Normalize()
	a.UpdatedAt = time.Now().UTC()

	res, err := r.db.Exec(`
		UPDATE assets
		SET asset_type = ?, symbol = ?, name = ?, quantity = ?,
			purchase_price = ?, current_price = ?, purchase_date = ?, updated_at = ?
		WHERE id = ?`,
		a.AssetType, a.Symbol, a.Name, a.Quantity,
		a.PurchasePrice, a.CurrentPrice, a.PurchaseDate, a.UpdatedAt, a.ID)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to update asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Asset{}, fmt.Errorf("asset %s not found", a.ID)
	}
	return r.Get(a.ID)
}

// UpdateCurrentPrice stores a freshly fetched price for an asset.
func (r *Repository) UpdateCurrentPrice(id string, price float64) error {
	_, err := r.db.Exec(
		`UPDATE assets SET current_price = ?, updated_at = ? WHERE id = ?`,
		price, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update current price: %w", err)
	}
	return nil
}

// Delete removes an asset.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s not found", id)
	}
	return nil
}
