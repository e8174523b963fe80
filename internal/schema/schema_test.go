package schema

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/leapstack-labs/genmigrate/internal/statement"
	"github.com/leapstack-labs/genmigrate/internal/testutil"
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSession(t *testing.T) (*adapter.BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &adapter.BaseSQLAdapter{DB: db, SQL: &adapter.Dialect{Name: "mysql", CommitSQL: "COMMIT"}}, mock
}

func TestSynthesize(t *testing.T) {
	var got generate.Request
	gen := generate.Func(func(_ context.Context, req generate.Request) (string, error) {
		got = req
		return testutil.RetailSchema, nil
	})

	raw, batch, err := Synthesize(context.Background(), gen, "mysql", "\nCSV: SALES.csv\n")
	require.NoError(t, err)
	assert.Equal(t, testutil.RetailSchema, raw)
	assert.Len(t, batch, 3)
	assert.Contains(t, got.User, "CSV: SALES.csv")
}

func TestSynthesize_GenerationFailure(t *testing.T) {
	raw, batch, err := Synthesize(context.Background(), generate.Disabled{}, "mysql", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generate.ErrDisabled))
	assert.Empty(t, raw)
	assert.Empty(t, batch)
}

func TestApply_OrdersTiersAndCommitsEach(t *testing.T) {
	sess, mock := mockSession(t)
	batch := statement.Extract(testutil.RetailSchema)

	mock.ExpectExec(regexp.QuoteMeta(batch[1])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(batch[2])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(batch[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	outcomes := Apply(context.Background(), sess, BuildPlan(batch), statement.Schema(), testutil.NewTestLogger(t))

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.OK(), o.Error)
	}
	assert.Equal(t, 1, outcomes[0].Index)
	assert.Equal(t, 1, outcomes[2].Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_IsolatesFailures(t *testing.T) {
	sess, mock := mockSession(t)
	batch := statement.Batch{
		"CREATE TABLE A (id INT)",
		"CREATE TABEL B (id INT)",
		"DROP TABLE C",
		"CREATE TABLE D (id INT)",
	}

	mock.ExpectExec(regexp.QuoteMeta(batch[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(batch[3])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(batch[1])).WillReturnError(errors.New("syntax error"))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	plan := BuildPlan(batch)
	require.Len(t, plan.Tiers, 2, "unparseable statements run in the final tier")

	// The misspelled CREATE is unattributable; DROP is unattributable too.
	outcomes := Apply(context.Background(), sess, plan, statement.Schema(), nil)
	require.Len(t, outcomes, 4)

	byIndex := map[int]Outcome{}
	for _, o := range outcomes {
		byIndex[o.Index] = o
	}
	assert.True(t, byIndex[0].OK())
	assert.True(t, byIndex[3].OK())
	assert.Contains(t, byIndex[1].Error, "syntax error")
	assert.Contains(t, byIndex[2].Error, "not allowed", "DROP never reaches the database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RunsAlterWithItsTable(t *testing.T) {
	sess, mock := mockSession(t)
	batch := statement.Batch{
		"CREATE TABLE SALES (sale_id INT PRIMARY KEY, customer_id INT)",
		"ALTER TABLE SALES ADD CONSTRAINT fk_sales_customer FOREIGN KEY (customer_id) REFERENCES CUSTOMERS(customer_id)",
		"CREATE TABLE CUSTOMERS (customer_id INT PRIMARY KEY)",
	}

	mock.ExpectExec(regexp.QuoteMeta(batch[2])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(batch[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(batch[1])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	outcomes := Apply(context.Background(), sess, BuildPlan(batch), statement.Schema(), nil)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.OK(), o.Error)
	}
	assert.Equal(t, 1, outcomes[2].Index)
	assert.Equal(t, 1, outcomes[2].Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}
