package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedScriptsHaveUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(scripts, scriptsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		raw, err := fs.ReadFile(scripts, scriptsDir+"/"+entry.Name())
		require.NoError(t, err)
		body := string(raw)
		assert.Contains(t, body, "-- +goose Up", entry.Name())
		assert.Contains(t, body, "-- +goose Down", entry.Name())
	}
}

func TestInitialSchemaSeedsEveryStatus(t *testing.T) {
	raw, err := fs.ReadFile(scripts, scriptsDir+"/00001_init_schema.sql")
	require.NoError(t, err)
	body := string(raw)
	for _, code := range []string{"draft", "under_review", "validated", "offer_made", "match_made", "in_implementation", "closed", "rejected", "unmatched"} {
		assert.True(t, strings.Contains(body, "('"+code+"'"), code)
	}
	assert.Contains(t, body, "offers_one_active_per_request")
}
