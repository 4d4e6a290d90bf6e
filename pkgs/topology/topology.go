// Package topology models a prepared statement's compiled plan plus the
// external-variable declaration, optional bindings, and the topology
// snapshot (shard/partition ids) RECEIVE consults on every fetch.
package topology

import (
	"sync/atomic"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Snapshot is an immutable view of the shard/partition layout known to a
// prepared statement at one instant. Readers hold a reference for the
// duration of one fetch cycle; the statement swaps in a new Snapshot
// pointer atomically on topology change (spec §5).
type Snapshot struct {
	ShardIDs []string
}

// PreparedStatement is the opaque, server-compiled plan plus the
// declaration-ordered external-variable names, optional bindings, and the
// current topology snapshot. It is shared read-mostly across executors.
type PreparedStatement struct {
	Bytes       []byte
	ExtVarNames []string // declaration order, preserved

	root *queryplan.Step

	bindings map[string]value.Value
	topo     atomic.Pointer[Snapshot]
}

// NewPreparedStatement builds a statement from the server's decoded plan
// and declared external-variable names.
func NewPreparedStatement(planBytes []byte, root *queryplan.Step, extVarNames []string) *PreparedStatement {
	ps := &PreparedStatement{
		Bytes:       planBytes,
		ExtVarNames: extVarNames,
		root:        root,
		bindings:    make(map[string]value.Value),
	}
	ps.topo.Store(&Snapshot{})
	return ps
}

// Root returns the decoded plan's root iterator step.
func (ps *PreparedStatement) Root() *queryplan.Step { return ps.root }

// Bind binds name to v. Names must be among the plan's declared external
// variables; an unknown name is an Argument error (spec §6 bind contract).
func (ps *PreparedStatement) Bind(name string, v value.Value) error {
	found := false
	for _, n := range ps.ExtVarNames {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return queryerr.IllegalArgument("bind: %q is not a declared external variable", name)
	}
	ps.bindings[name] = v
	return nil
}

// ResolveBindings returns the bound values in declaration order, erroring
// with the names of any declared variables that were never bound.
func (ps *PreparedStatement) ResolveBindings() ([]value.Value, error) {
	out := make([]value.Value, len(ps.ExtVarNames))
	var missing []string
	for i, name := range ps.ExtVarNames {
		v, ok := ps.bindings[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out[i] = v
	}
	if len(missing) > 0 {
		return nil, queryerr.IllegalArgument("missing required bindings: %v", missing)
	}
	return out, nil
}

// Topology returns the currently pinned snapshot.
func (ps *PreparedStatement) Topology() *Snapshot { return ps.topo.Load() }

// SwapTopology atomically replaces the topology snapshot, e.g. after a
// server response reports a shard added or removed.
func (ps *PreparedStatement) SwapTopology(s *Snapshot) { ps.topo.Store(s) }
