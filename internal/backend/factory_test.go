package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomdash/internal/config"
	"ecomdash/internal/core"
	"ecomdash/internal/storage"
)

const csvData = "order_id,customer_id,customer_city,customer_state,product_id,product_category_name,payment_type,order_purchase_timestamp\n" +
	"o1,c1,rio,RJ,p1,toys,boleto,2018-01-01 10:00:00\n" +
	"o2,c2,rio,RJ,p2,toys,voucher,2018-01-02 10:00:00\n"

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "memory"})
	assert.EqualError(t, err, "invalid backend type in config: memory")

	cfg, err := FromAppConfig(&config.Config{DataBackend: "file", DataFile: "x.csv", DataSheet: "orders"})
	require.NoError(t, err)
	assert.Equal(t, FileBackend, cfg.Type)
	assert.Equal(t, "orders", cfg.DataSheet)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "file ok", config: Config{Type: FileBackend, DataFile: "a.csv"}},
		{name: "file missing path", config: Config{Type: FileBackend}, wantErr: "data file is required for file backend"},
		{name: "sqlite missing path", config: Config{Type: SQLiteBackend}, wantErr: "SQLite database path is required for sqlite backend"},
		{name: "sheets missing credentials", config: Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleSheetRange: "a!A:H"},
			wantErr: "service account credentials are required for sheets backend"},
		{name: "unknown", config: Config{Type: "memory"}, wantErr: "invalid backend type: memory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestCreateFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: FileBackend, DataFile: path})
	require.NoError(t, err)
	defer res.Cleanup()

	tbl, err := res.Source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ecomdash.db")

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	_, err = repo.ReplaceOrders(ctx, "test", []core.OrderRecord{{
		OrderID: "o1", CustomerID: "c1", CustomerCity: "rio", CustomerState: "RJ",
		ProductID: "p1", PaymentType: "boleto", PurchasedAt: core.NewDate(2018, 1, 1).Time,
	}})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: dbPath})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Equal(t, "sqlite", res.Source.Name())
	tbl, err := res.Source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestCreateSQLiteBackendSharesRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ecomdash.db"))
	require.NoError(t, err)
	defer repo.Close()

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, Repository: repo})
	require.NoError(t, err)
	require.NoError(t, res.Cleanup())

	// Cleanup leaves the shared database open.
	assert.NoError(t, repo.Ping(ctx))
}
