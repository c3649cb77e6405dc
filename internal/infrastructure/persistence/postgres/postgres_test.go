package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "db.local"
	cfg.Password = "pw"
	assert.Equal(t,
		"host=db.local port=5432 dbname=learnhub user=postgres password=pw sslmode=disable connect_timeout=10",
		cfg.DSN())

	cfg.URL = "postgres://u:p@h:5432/db"
	assert.Equal(t, "postgres://u:p@h:5432/db", cfg.DSN())
}

func TestConstraintHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
}

func TestIsInfrastructureError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no rows", pgx.ErrNoRows, false},
		{"canceled", context.Canceled, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"network", errors.New("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInfrastructureError(tt.err))
		})
	}
}

func TestParseMoney(t *testing.T) {
	d, err := parseMoney(nil)
	require.NoError(t, err)
	assert.Nil(t, d)

	raw := "49.99"
	d, err = parseMoney(&raw)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("49.99")))

	bad := "abc"
	_, err = parseMoney(&bad)
	assert.Error(t, err)

	assert.Equal(t, "40.00", moneyArg(decimal.NewFromInt(40)))
	assert.Nil(t, nullString(""))
}
