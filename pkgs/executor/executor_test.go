package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/topology"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func TestNewValidatesOptions(t *testing.T) {
	root := &queryplan.Step{Kind: queryplan.KindConst, ResPos: 0, ConstVal: value.Int(1)}
	stmt := topology.NewPreparedStatement(nil, root, nil)
	_, err := New(context.Background(), stmt, nil, Options{Timeout: -1})
	assert.Error(t, err, "a negative timeout should fail options validation")
}

func TestExecuteDrainsRootIteratorToCompletion(t *testing.T) {
	root := &queryplan.Step{Kind: queryplan.KindConst, ResPos: 0, ConstVal: value.Long(42)}
	stmt := topology.NewPreparedStatement(nil, root, nil)
	e, err := New(context.Background(), stmt, nil, Options{})
	require.NoError(t, err)

	page, err := e.Execute()
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, int64(42), page.Rows[0].Long())
	assert.Empty(t, page.ContinuationKey, "a fully-drained query must not return a continuation key")
}

func TestExecuteRespectsUserFacingLimit(t *testing.T) {
	// Build a tiny SFW over a const FROM source (which yields a single row)
	// and ask for a batch size of one.
	from := &queryplan.Step{Kind: queryplan.KindConst, ResPos: 0, ConstVal: value.Int(1)}
	col := &queryplan.Step{Kind: queryplan.KindVarRef, ResPos: 0, VarName: "x"}
	sfw := &queryplan.Step{
		Kind:        queryplan.KindSFW,
		ResPos:      1,
		FromStep:    from,
		ColumnSteps: []*queryplan.Step{col},
		ColumnNames: []string{"x"},
		SelectStar:  true,
		GBColCount:  -1,
	}
	stmt := topology.NewPreparedStatement(nil, sfw, nil)
	e, err := New(context.Background(), stmt, nil, Options{Limit: 1})
	require.NoError(t, err)

	page, err := e.Execute()
	require.NoError(t, err)
	assert.Len(t, page.Rows, 1, "respecting Limit")
}

func TestBindDelegatesToPreparedStatement(t *testing.T) {
	root := &queryplan.Step{Kind: queryplan.KindConst, ResPos: 0, ConstVal: value.Int(1)}
	stmt := topology.NewPreparedStatement(nil, root, []string{"v"})
	require.NoError(t, stmt.Bind("v", value.Int(5)))

	e, err := New(context.Background(), stmt, nil, Options{})
	require.NoError(t, err)

	assert.NoError(t, e.Bind("v", value.Int(9)))
	assert.Error(t, e.Bind("unknown", value.Int(5)), "binding an undeclared variable should fail")
}

func TestNewFailsWhenDeclaredVariableIsUnbound(t *testing.T) {
	root := &queryplan.Step{Kind: queryplan.KindConst, ResPos: 0, ConstVal: value.Int(1)}
	stmt := topology.NewPreparedStatement(nil, root, []string{"v"})
	_, err := New(context.Background(), stmt, nil, Options{})
	assert.Error(t, err, "constructing an executor with an unbound declared variable should fail")
}

func TestOptionsValidateRejectsUnknownConsistency(t *testing.T) {
	o := Options{Consistency: 99}
	assert.Error(t, o.Validate(), "an out-of-range consistency value should fail schema validation")
}
