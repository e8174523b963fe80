package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/leapstack-labs/genmigrate/internal/schema"
	"github.com/leapstack-labs/genmigrate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_OrdersParentsFirst(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "schema.sql", testutil.RetailSchema)

	out, _, err := executeWith(t, NewPlanCommand(), nil, output.ModeJSON, path)
	require.NoError(t, err)

	var plan schema.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan.Tiers, 2)
	assert.False(t, plan.Cyclic)
	assert.ElementsMatch(t, []string{"CUSTOMERS", "INVENTORY"}, plan.Tiers[0].Tables)
	assert.Equal(t, []string{"SALES"}, plan.Tiers[1].Tables)
	assert.Equal(t, 2, plan.Edges)
	assert.ElementsMatch(t, []string{"CUSTOMERS", "INVENTORY"}, plan.Tiers[1].Depends["SALES"])
}

func TestPlan_Text(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "schema.sql", testutil.RetailSchema)

	out, _, err := executeWith(t, NewPlanCommand(), nil, output.ModeText, path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 statements in 2 tiers, 2 table dependencies")
	assert.Contains(t, out, "CUSTOMERS, INVENTORY")
	assert.Contains(t, out, "CREATE TABLE SALES ( ...")
}

func TestPlan_Cycle(t *testing.T) {
	ddl := "CREATE TABLE a (id INT, b_id INT REFERENCES b(id));\nCREATE TABLE b (id INT, a_id INT REFERENCES a(id));"
	path := testutil.WriteFile(t, t.TempDir(), "cycle.sql", ddl)

	_, errOut, err := executeWith(t, NewPlanCommand(), nil, output.ModeText, path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "cycle")
}

func TestPlan_MissingFile(t *testing.T) {
	_, _, err := executeWith(t, NewPlanCommand(), nil, output.ModeText, filepath.Join(t.TempDir(), "none.sql"))
	require.Error(t, err)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "SELECT 1", firstLine("  SELECT 1  "))
	assert.Equal(t, "CREATE TABLE t ( ...", firstLine("CREATE TABLE t (\n  id INT\n)"))
}
