package duckdbx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAndQuery(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.Query(context.Background(), "SELECT 1 AS one")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var one int
	require.NoError(t, rows.Scan(&one))
	require.Equal(t, 1, one)
}

func TestMemoryLimitSetting(t *testing.T) {
	db, err := Open("", WithMemoryLimitMB(256))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var value string
	row := conn.QueryRowContext(context.Background(),
		"SELECT current_setting('memory_limit')")
	require.NoError(t, row.Scan(&value))
	require.Contains(t, value, "256")
}
