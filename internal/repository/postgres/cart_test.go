package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/pkg/database"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

func setupTestRepo(t *testing.T) (*CartRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewCartRepository(mock, logger), mock
}

func accountCart() *domain.Cart {
	cart := domain.NewCart(domain.AccountOwnerKey("user-001"))
	cart.Items = []domain.CartItem{
		{
			ProductID: "52772",
			Name:      "Teriyaki Chicken Casserole",
			UnitPrice: decimal.RequireFromString("12.50"),
			Quantity:  2,
			ImageRef:  "https://example.com/meals/52772.jpg",
		},
		{
			ProductID: "52804",
			Name:      "Poutine",
			UnitPrice: decimal.RequireFromString("8.75"),
			Quantity:  1,
		},
	}
	cart.UpdatedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return cart
}

func TestCartRepository_Get_Success(t *testing.T) {
	repo, mock := setupTestRepo(t)
	cart := accountCart()

	mock.ExpectQuery("SELECT updated_at FROM carts").
		WithArgs(cart.OwnerKey).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(cart.UpdatedAt))

	mock.ExpectQuery("SELECT product_id, name, unit_price, quantity, image_ref").
		WithArgs(cart.OwnerKey).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "unit_price", "quantity", "image_ref"}).
			AddRow("52772", "Teriyaki Chicken Casserole", decimal.RequireFromString("12.50"), 2, "https://example.com/meals/52772.jpg").
			AddRow("52804", "Poutine", decimal.RequireFromString("8.75"), 1, ""))

	got, err := repo.Get(context.Background(), cart.OwnerKey)
	require.NoError(t, err)
	assert.Equal(t, cart.OwnerKey, got.OwnerKey)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "52772", got.Items[0].ProductID)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 2, got.Items[0].Quantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Get_NotFound(t *testing.T) {
	repo, mock := setupTestRepo(t)
	ownerKey := domain.AccountOwnerKey("missing")

	mock.ExpectQuery("SELECT updated_at FROM carts").
		WithArgs(ownerKey).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}))

	got, err := repo.Get(context.Background(), ownerKey)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Get_DropsInvalidRows(t *testing.T) {
	repo, mock := setupTestRepo(t)
	ownerKey := domain.AccountOwnerKey("user-002")

	mock.ExpectQuery("SELECT updated_at FROM carts").
		WithArgs(ownerKey).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now().UTC()))

	mock.ExpectQuery("SELECT product_id, name, unit_price, quantity, image_ref").
		WithArgs(ownerKey).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "unit_price", "quantity", "image_ref"}).
			AddRow("52772", "Good", decimal.RequireFromString("5.00"), 1, "").
			AddRow("52804", "Zero quantity", decimal.RequireFromString("1.00"), 0, ""))

	got, err := repo.Get(context.Background(), ownerKey)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "52772", got.Items[0].ProductID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Save_Success(t *testing.T) {
	repo, mock := setupTestRepo(t)
	cart := accountCart()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO carts").
		WithArgs(cart.OwnerKey, cart.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(cart.OwnerKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	for i, item := range cart.Items {
		mock.ExpectExec("INSERT INTO cart_items").
			WithArgs(cart.OwnerKey, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.ImageRef, i).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), cart))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Save_EmptyCart(t *testing.T) {
	repo, mock := setupTestRepo(t)
	cart := domain.NewCart(domain.AccountOwnerKey("user-003"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO carts").
		WithArgs(cart.OwnerKey, cart.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(cart.OwnerKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), cart))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Save_InsertErrorRollsBack(t *testing.T) {
	repo, mock := setupTestRepo(t)
	cart := accountCart()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO carts").
		WithArgs(cart.OwnerKey, cart.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(cart.OwnerKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs(cart.OwnerKey, cart.Items[0].ProductID, cart.Items[0].Name, cart.Items[0].UnitPrice, cart.Items[0].Quantity, cart.Items[0].ImageRef, 0).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), cart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert cart item")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Save_BeginError(t *testing.T) {
	repo, mock := setupTestRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.Save(context.Background(), accountCart())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mock := setupTestRepo(t)
	ownerKey := domain.AccountOwnerKey("user-001")

	mock.ExpectExec("DELETE FROM carts").
		WithArgs(ownerKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), ownerKey))
	require.NoError(t, mock.ExpectationsWereMet())
}
