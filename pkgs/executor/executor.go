// Package executor ties the iterator tree, the register file and the
// memory counter together into the engine's user-facing entry point:
// execute a prepared statement, or resume it from a continuation.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/iterator"
	"github.com/oracle/nosql-go-queryexec/pkgs/memacct"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/rpc"
	"github.com/oracle/nosql-go-queryexec/pkgs/topology"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Executor drives one prepared statement's iterator tree across possibly
// many user calls, retaining its register file and memory counter between
// continuations (spec §3 "Executor state").
type Executor struct {
	stmt *topology.PreparedStatement
	opts Options

	env  *iterator.Env
	root iterator.Iter
}

// New builds an Executor for stmt, resolving its external-variable bindings
// in declaration order and validating opts.
func New(ctx context.Context, stmt *topology.PreparedStatement, exec rpc.QueryExecutor, opts Options) (*Executor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	bindings, err := stmt.ResolveBindings()
	if err != nil {
		return nil, err
	}
	root, err := iterator.Build(stmt.Root())
	if err != nil {
		return nil, err
	}

	env := iterator.NewEnv(int(maxResPos(stmt.Root())) + 1)
	env.Ctx = ctx
	env.ExtVars = bindings
	env.Stmt = stmt
	env.Exec = exec
	env.Mem = memacct.NewCounter(int64(opts.MaxMemoryMB) * 1024 * 1024)
	env.Consistency = opts.Consistency
	if opts.Timeout > 0 {
		env.Deadline = time.Now().Add(time.Duration(opts.Timeout) * time.Millisecond)
	}
	env.Log = zap.NewNop()

	return &Executor{stmt: stmt, opts: opts, env: env, root: root}, nil
}

// maxResPos walks the decoded plan tree to find the highest register index
// any step writes to, sizing the executor's register file without needing
// a separate registerCount field on the wire (the server doesn't send one).
func maxResPos(s *queryplan.Step) int32 {
	if s == nil {
		return -1
	}
	max := s.ResPos
	consider := func(sub *queryplan.Step) {
		if m := maxResPos(sub); m > max {
			max = m
		}
	}
	consider(s.Input)
	consider(s.FromStep)
	consider(s.OffsetStep)
	consider(s.LimitStep)
	for _, a := range s.Args {
		consider(a)
	}
	for _, c := range s.ColumnSteps {
		consider(c)
	}
	return max
}

// Execute pulls rows from the iterator tree until the user-facing batch
// size (opts.Limit) is reached or the tree is exhausted, returning a page
// and an opaque continuation token when more work remains.
func (e *Executor) Execute() (*rpc.Page, error) {
	e.env.BeginUserCall()
	var rows []value.Value
	exhausted := false
	for len(rows) < e.opts.Limit || e.opts.Limit <= 0 {
		if !e.env.Deadline.IsZero() && e.env.Clk.Now().After(e.env.Deadline) {
			return nil, queryerr.Wrap(queryerr.Timeout, context.DeadlineExceeded, "query exceeded its deadline")
		}
		has, err := e.root.Next(e.env)
		if err != nil {
			return nil, err
		}
		if !has {
			exhausted = true
			break
		}
		rows = append(rows, e.env.Reg(e.root.ResPos()))
		if e.env.NeedUserContinuation {
			break
		}
	}

	page := &rpc.Page{Rows: rows}
	if e.env.NeedUserContinuation || !exhausted {
		page.ContinuationKey = []byte{1} // opaque: "more work pending in this executor"
	}
	return page, nil
}

// Bind binds name to v on the underlying prepared statement.
func (e *Executor) Bind(name string, v value.Value) error {
	return e.stmt.Bind(name, v)
}
