package sqlite

import (
	"context"
	"testing"

	"github.com/leapstack-labs/genmigrate/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	a := New(nil)
	require.NoError(t, a.Connect(context.Background(), adapter.Config{Type: "sqlite", Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAdapter_InsertIgnoreSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	a := connect(t)

	require.NoError(t, a.Exec(ctx, "CREATE TABLE CUSTOMERS (customer_id INTEGER PRIMARY KEY, name TEXT)"))
	require.NoError(t, a.Exec(ctx, "INSERT INTO CUSTOMERS VALUES (1, 'existing')"))

	n, err := a.InsertRows(ctx, "CUSTOMERS", []string{"customer_id", "name"},
		[][]any{{int64(1), "dup"}, {int64(2), "b"}, {int64(3), "c"}}, adapter.ConflictIgnore)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rs, err := adapter.Fetch(ctx, a, "SELECT COUNT(*) FROM CUSTOMERS")
	require.NoError(t, err)
	assert.EqualValues(t, 3, rs.Rows[0][0])
}

func TestAdapter_StrictInsertRollsBack(t *testing.T) {
	ctx := context.Background()
	a := connect(t)

	require.NoError(t, a.Exec(ctx, "CREATE TABLE CUSTOMERS (customer_id INTEGER PRIMARY KEY)"))
	require.NoError(t, a.Exec(ctx, "INSERT INTO CUSTOMERS VALUES (1)"))

	_, err := a.InsertRows(ctx, "CUSTOMERS", []string{"customer_id"},
		[][]any{{int64(2)}, {int64(1)}}, adapter.ConflictError)
	require.Error(t, err)

	rs, err := adapter.Fetch(ctx, a, "SELECT COUNT(*) FROM CUSTOMERS")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rs.Rows[0][0], "failed unit must leave no partial rows")
}

func TestAdapter_DropTableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := connect(t)

	require.NoError(t, a.DropTable(ctx, "SALES"))
	require.NoError(t, a.Exec(ctx, "CREATE TABLE SALES (id INTEGER)"))
	require.NoError(t, a.DropTable(ctx, "SALES"))
	require.NoError(t, a.Commit(ctx))
}
