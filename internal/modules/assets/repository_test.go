package assets

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkoutso/portico/internal/database"
	"github.com/nkoutso/portico/internal/domain"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Assets need an owning portfolio for the FK.
	_, err = db.Conn().Exec(`INSERT INTO portfolios (id, name) VALUES ('p1', 'Test')`)
	require.NoError(t, err)

	return NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRepository_CRUD(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(domain.Asset{
		PortfolioID:   "p1",
		AssetType:     domain.AssetStock,
		Symbol:        "AAPL",
		Name:          "Apple",
		Quantity:      10,
		PurchasePrice: 150,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.PurchaseDate.IsZero())

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Name)

	got.Quantity = 12
	got.CurrentPrice = 180
	updated, err := repo.Update(got)
	require.NoError(t, err)
	assert.Equal(t, 12.0, updated.Quantity)
	assert.Equal(t, 180.0, updated.CurrentPrice)

	list, err := repo.ListByPortfolio("p1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	ids, err := repo.IDs("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids)

	require.NoError(t, repo.Delete(created.ID))
	assert.Error(t, repo.Delete(created.ID))

	list, err = repo.ListByPortfolio("p1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_NormalizesUnknownType(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(domain.Asset{
		PortfolioID:   "p1",
		AssetType:     domain.AssetType("beanie_babies"),
		Name:          "Collectibles",
		Quantity:      1,
		PurchasePrice: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetOther, created.AssetType)
}

func TestRepository_UpdateCurrentPrice(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(domain.Asset{
		PortfolioID:   "p1",
		AssetType:     domain.AssetCrypto,
		Name:          "Bitcoin",
		Quantity:      0.5,
		PurchasePrice: 40000,
	})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCurrentPrice(created.ID, 42000))

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 42000.0, got.CurrentPrice)
}

func TestRepository_UpdateMissingAsset(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.Update(domain.Asset{ID: "nope", PortfolioID: "p1", Name: "Ghost", Quantity: 1})
	assert.Error(t, err)
}
