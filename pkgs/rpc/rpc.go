// Package rpc declares the external collaborators the engine consumes but
// never implements: the RPC facade, a clock source, and an authenticated
// binary reader/writer pair. Transport, authorization, retries and rate
// limiting live on the other side of these interfaces (spec §1).
package rpc

import (
	"context"
	"time"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Request describes one remote fetch: the prepared statement's plan bytes,
// the bound external variables, a consistency requirement, a row-count
// hint, and an opaque continuation key (nil for the first fetch of a
// distribution source).
type Request struct {
	PlanBytes        []byte
	Bindings         []value.Value
	Consistency      Consistency
	MaxRows          int
	ContinuationKey  []byte
	ShardOrPartition string // target for ALL_SHARDS / ALL_PARTITIONS fetches, "" for SINGLE_PARTITION
	Deadline         time.Time
}

// Consistency is the read consistency requested for a fetch.
type Consistency int

const (
	ConsistencyEventual Consistency = iota
	ConsistencyAbsolute
)

// Row is one record returned by a remote fetch, already decoded to the
// engine's Value model.
type Row = value.Value

// ConsumedCapacity reports read/write units spent by a fetch, surfaced to
// callers but not interpreted by the engine itself.
type ConsumedCapacity struct {
	ReadUnits  float64
	WriteUnits float64
}

// Page is one remote page of results.
type Page struct {
	Rows             []Row
	ConsumedCapacity *ConsumedCapacity
	ContinuationKey  []byte
	ReachedLimit     bool

	// All-partitions sort, phase 1 only.
	Phase1Continuing   bool
	PartitionIDs       []string
	RowsPerPartitionID []int
	PartitionContKeys  [][]byte
}

// QueryExecutor is the RPC facade the engine drives: execute_query(request)
// -> page. Exactly one call is made per RECEIVE suspend point.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, req Request) (*Page, error)
}

// Clock is the pluggable time source used for deadline bookkeeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock backed by time.Now.
var SystemClock Clock = systemClock{}
