package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "portal",
		Password: "secret",
		Name:     "capdev",
		SSLMode:  "require",
	})
	assert.Equal(t, "host=db port=5433 user=portal password=secret dbname=capdev sslmode=require application_name=capdev-portal-api connect_timeout=5", dsn)

	assert.Contains(t, DSN(config.DatabaseConfig{Host: "db", Port: 5432}), "sslmode=disable")
}

func TestPing(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = Ping(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping")

	assert.Error(t, Ping(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
