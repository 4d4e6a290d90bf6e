// Package iterator implements the iterator kernel and every concrete plan
// operator: CONST, VAR_REF, EXTERNAL_VAR_REF, FIELD_STEP, ARITH_OP, FN_SUM,
// FN_MIN_MAX, SORT, SFW and RECEIVE. One executor owns one Env. The whole
// iterator tree is built once, by Build, when the executor is constructed;
// iterators are not created lazily on first Next. Each iterator holds only
// an index into Env's register file, never a pointer to it (spec §9
// "dynamic iterators with shared state").
package iterator

import (
	"context"
	"time"

	"go.uber.org/zap"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/memacct"
	"github.com/oracle/nosql-go-queryexec/pkgs/rpc"
	"github.com/oracle/nosql-go-queryexec/pkgs/topology"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Env is the per-executor state shared by every iterator in one query's
// tree: the result-register file, the external-variable vector, the memory
// counter, the at-most-one-fetch-per-call flags, and the collaborators
// (RPC facade, clock, logger) RECEIVE needs.
type Env struct {
	Ctx context.Context

	Registers []value.Value
	ExtVars   []value.Value

	Mem        *memacct.Counter
	NumHandler value.NumberHandler

	Stmt *topology.PreparedStatement
	Exec rpc.QueryExecutor
	Clk  rpc.Clock

	Consistency rpc.Consistency
	Deadline    time.Time

	// FetchDone is set once this user call has performed its one remote
	// fetch; NeedUserContinuation is set when more work remains that
	// cannot be completed within this call (spec §4.2/§5).
	FetchDone            bool
	NeedUserContinuation bool

	Log *zap.Logger
}

// NewEnv builds an Env with nRegisters register slots, all initialized to
// EMPTY.
func NewEnv(nRegisters int) *Env {
	regs := make([]value.Value, nRegisters)
	for i := range regs {
		regs[i] = value.Empty
	}
	return &Env{
		Registers: regs,
		Mem:       memacct.NewCounter(0),
		Log:       zap.NewNop(),
		Clk:       rpc.SystemClock,
	}
}

// Reg reads the value currently held in register pos.
func (e *Env) Reg(pos int32) value.Value { return e.Registers[pos] }

// SetReg writes v into register pos.
func (e *Env) SetReg(pos int32, v value.Value) { e.Registers[pos] = v }

// ExtVar returns the bound external variable at idx, or an illegal-state
// error naming the variable if no binding is present (spec §4.2).
func (e *Env) ExtVar(idx int32, name string) (value.Value, error) {
	if idx < 0 || int(idx) >= len(e.ExtVars) {
		return value.Value{}, queryerr.IllegalState("external variable %q has no binding at index %d", name, idx).WithIterator("EXTERNAL_VAR_REF")
	}
	return e.ExtVars[idx], nil
}

// BeginUserCall resets the per-call flags at the start of each execute()
// invocation, per spec §4.7: "the next user invocation clears both."
func (e *Env) BeginUserCall() {
	e.FetchDone = false
	e.NeedUserContinuation = false
}
