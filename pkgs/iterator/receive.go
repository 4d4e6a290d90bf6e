package iterator

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/oracle/nosql-go-queryexec/pkgs/binfmt"
	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/rpc"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// shardIDKey is the canonical placeholder id given to the single merge
// source when the topology snapshot lists no shards (locked open-question
// decision: "_shardId", not "shardId"). Rows that compare equal on the
// declared sort fields are tie-broken by source id (see sourceHeap.Less).
const shardIDKey = "_shardId"

const maxFetchRowLimit = 2048

// recvSource is one partitioned/sharded sub-stream RECEIVE merges: a
// buffered page of rows plus its own continuation key.
type recvSource struct {
	id      string
	rows    []value.Value
	pos     int
	contKey []byte
	done    bool
}

func (s *recvSource) hasBuffered() bool { return s.pos < len(s.rows) }
func (s *recvSource) head() value.Value { return s.rows[s.pos] }
func (s *recvSource) advance()          { s.pos++ }

// sourceHeap orders sub-streams by their current head row per the RECV
// sort-specs, tie-broken by source id so rows that compare equal on sort
// fields still merge deterministically across shards (spec §4.7).
type sourceHeap struct {
	sources    []*recvSource
	specs      []queryplan.SortSpec
	numHandler value.NumberHandler
}

func (h *sourceHeap) Len() int { return len(h.sources) }
func (h *sourceHeap) Less(i, j int) bool {
	a, b := h.sources[i], h.sources[j]
	for _, spec := range h.specs {
		fa, fb := fieldOf(a.head(), spec.FieldName), fieldOf(b.head(), spec.FieldName)
		c := value.Compare(fa, fb, spec.NullRank, h.numHandler)
		if spec.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return a.id < b.id
}
func (h *sourceHeap) Swap(i, j int) { h.sources[i], h.sources[j] = h.sources[j], h.sources[i] }
func (h *sourceHeap) Push(x interface{}) { h.sources = append(h.sources, x.(*recvSource)) }
func (h *sourceHeap) Pop() interface{} {
	old := h.sources
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.sources = old[:n-1]
	return item
}

// receiveIter is the RECEIVE operator: it drives the one remote fetch a
// user call is allowed and merges the resulting rows, in one of three modes
// selected by the plan's distribution kind.
type receiveIter struct {
	resPos   int32
	dist     queryplan.DistKind
	sortSpec []queryplan.SortSpec
	pkFields []string

	// Simple (single-partition) mode.
	simple *recvSource

	// All-shards / all-partitions-phase-2 merge state.
	sources       []*recvSource
	knownShardIDs []string
	primeIdx      int
	h             *sourceHeap
	heapBuilt     bool
	pending       []*recvSource

	// All-partitions phase 1 state.
	phase1Partitions map[string]*recvSource
	phase1Order      []string
	phase1ContKey    []byte
	phase1First      bool
	phase1Done       bool

	dedup           map[binfmt.DedupKey]struct{}
	dedupMemCharged int64

	bytesSeen int64
	rowsSeen  int64
}

func newReceiveIter(s *queryplan.Step) (Iter, error) {
	return &receiveIter{
		resPos:           s.ResPos,
		dist:             s.DistKind,
		sortSpec:         s.RecvSort,
		pkFields:         s.PKFields,
		phase1Partitions: map[string]*recvSource{},
		phase1First:      true,
	}, nil
}

func (r *receiveIter) ResPos() int32 { return r.resPos }

func (r *receiveIter) Next(env *Env) (bool, error) {
	switch r.dist {
	case queryplan.DistSinglePartition:
		return r.nextSimple(env)
	case queryplan.DistAllShards:
		return r.nextMerged(env)
	case queryplan.DistAllPartitions:
		return r.nextAllPartitions(env)
	default:
		return false, queryerr.BadProtocol("RECV: unknown distribution kind %v", r.dist).WithIterator("RECV")
	}
}

// performFetch enforces the at-most-one-remote-fetch-per-user-call rule: if
// this call already performed one, it signals NeedUserContinuation and
// returns a nil page rather than fetching again.
func (r *receiveIter) performFetch(env *Env, req rpc.Request) (*rpc.Page, error) {
	if env.FetchDone {
		env.NeedUserContinuation = true
		env.Log.Debug("RECV: continuation boundary, deferring to next user call",
			zap.String("target", req.ShardOrPartition))
		return nil, nil
	}
	env.Log.Debug("RECV: remote fetch",
		zap.String("target", req.ShardOrPartition),
		zap.Int("maxRows", req.MaxRows),
		zap.Bool("continuing", len(req.ContinuationKey) > 0))
	page, err := env.Exec.ExecuteQuery(env.Ctx, req)
	env.FetchDone = true
	if err != nil {
		kind := classifyFetchErr(err)
		if kind == queryerr.Retryable {
			env.Log.Warn("RECV: remote fetch failed, will retry",
				zap.String("target", req.ShardOrPartition), zap.Error(err))
		}
		return nil, queryerr.Wrap(kind, err, "RECV: remote fetch failed")
	}
	return page, nil
}

func classifyFetchErr(err error) queryerr.Kind {
	if queryerr.IsRetryable(err) {
		return queryerr.Retryable
	}
	return queryerr.State
}

func (r *receiveIter) buildRequest(env *Env, target string, contKey []byte, maxRows int) rpc.Request {
	return rpc.Request{
		PlanBytes:        env.Stmt.Bytes,
		Bindings:         env.ExtVars,
		Consistency:      env.Consistency,
		MaxRows:          maxRows,
		ContinuationKey:  contKey,
		ShardOrPartition: target,
		Deadline:         env.Deadline,
	}
}

func (r *receiveIter) applyPage(src *recvSource, page *rpc.Page) {
	src.rows = page.Rows
	src.pos = 0
	src.contKey = page.ContinuationKey
	src.done = len(page.ContinuationKey) == 0
}

// tryEmit applies primary-key dedup (if declared) and, unless the row is a
// duplicate, writes it to the register. Returns keep=false when the row was
// dropped and the caller should continue pulling.
func (r *receiveIter) tryEmit(env *Env, row value.Value) (keep bool, err error) {
	r.bytesSeen += row.ByteSize()
	r.rowsSeen++
	if len(r.pkFields) > 0 {
		dup, err := r.isDuplicate(env, row)
		if err != nil {
			return false, err
		}
		if dup {
			return false, nil
		}
	}
	env.SetReg(r.resPos, row)
	return true, nil
}

func (r *receiveIter) isDuplicate(env *Env, row value.Value) (bool, error) {
	if r.dedup == nil {
		r.dedup = make(map[binfmt.DedupKey]struct{})
	}
	fields := make([]value.Value, len(r.pkFields))
	for i, name := range r.pkFields {
		v, ok := fieldGet(row, name)
		if !ok {
			return false, queryerr.IllegalState("RECV: row missing declared primary-key field %q", name).WithIterator("RECV")
		}
		fields[i] = v
	}
	key, err := binfmt.CompositeDedupKey(fields)
	if err != nil {
		return false, err
	}
	if _, ok := r.dedup[key]; ok {
		return true, nil
	}
	const dedupEntryOverhead = 32
	if err := env.Mem.Inc(dedupEntryOverhead); err != nil {
		return false, err
	}
	r.dedupMemCharged += dedupEntryOverhead
	r.dedup[key] = struct{}{}
	return false, nil
}

func fieldGet(row value.Value, name string) (value.Value, bool) {
	switch row.Kind() {
	case value.KindMap:
		return row.MapGet(name)
	case value.KindRecord:
		return row.RecordGet(name)
	default:
		return value.Value{}, false
	}
}

// --- Simple (single-partition) mode ---

func (r *receiveIter) nextSimple(env *Env) (bool, error) {
	if r.simple == nil {
		r.simple = &recvSource{}
	}
	src := r.simple
	for {
		for src.hasBuffered() {
			row := src.head()
			src.advance()
			keep, err := r.tryEmit(env, row)
			if err != nil {
				return false, err
			}
			if keep {
				return true, nil
			}
		}
		if src.done {
			return false, nil
		}
		page, err := r.performFetch(env, r.buildRequest(env, "", src.contKey, maxFetchRowLimit))
		if err != nil {
			return false, err
		}
		if page == nil {
			return false, nil
		}
		r.applyPage(src, page)
	}
}

// --- All-shards merge mode (and all-partitions phase 2, which shares this
// machinery once phase 1 completes) ---

// syncShardSources reconciles the merge sources against the statement's
// current topology snapshot on every fetch attempt (spec §4.7: shards added
// since the last fetch get placeholders, shards removed are filtered out of
// the heap/pending set, and the locally-pinned view of the snapshot is
// updated so the next call only acts on a genuine change).
func (r *receiveIter) syncShardSources(env *Env) {
	ids := env.Stmt.Topology().ShardIDs
	if len(ids) == 0 {
		ids = []string{shardIDKey}
	}
	if r.sources == nil {
		r.sources = make([]*recvSource, len(ids))
		for i, id := range ids {
			r.sources[i] = &recvSource{id: id}
		}
		r.knownShardIDs = append([]string(nil), ids...)
		return
	}
	if sameShardIDs(r.knownShardIDs, ids) {
		return
	}

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	existing := make(map[string]bool, len(r.sources))
	kept := r.sources[:0]
	for _, s := range r.sources {
		existing[s.id] = true
		if idSet[s.id] {
			kept = append(kept, s)
		} else {
			env.Log.Debug("RECV: shard removed from topology", zap.String("shard", s.id))
		}
	}
	r.sources = kept
	r.dropRemovedSources(idSet)

	for _, id := range ids {
		if existing[id] {
			continue
		}
		env.Log.Debug("RECV: shard added to topology", zap.String("shard", id))
		src := &recvSource{id: id}
		r.sources = append(r.sources, src)
		if r.heapBuilt {
			r.pending = append(r.pending, src)
		}
	}
	r.knownShardIDs = append([]string(nil), ids...)
}

// dropRemovedSources purges any source no longer present in keep from the
// live heap and the pending-refetch queue.
func (r *receiveIter) dropRemovedSources(keep map[string]bool) {
	if r.h != nil {
		filtered := r.h.sources[:0]
		for _, s := range r.h.sources {
			if keep[s.id] {
				filtered = append(filtered, s)
			}
		}
		r.h.sources = filtered
		heap.Init(r.h)
	}
	if len(r.pending) > 0 {
		var kept []*recvSource
		for _, s := range r.pending {
			if keep[s.id] {
				kept = append(kept, s)
			}
		}
		r.pending = kept
	}
}

func sameShardIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *receiveIter) buildHeap() {
	r.h = &sourceHeap{specs: r.sortSpec}
	for _, s := range r.sources {
		if s.hasBuffered() {
			r.h.sources = append(r.h.sources, s)
		} else if !s.done {
			r.pending = append(r.pending, s)
		}
	}
	heap.Init(r.h)
	r.heapBuilt = true
}

func (r *receiveIter) nextMerged(env *Env) (bool, error) {
	r.syncShardSources(env)
	// primeIdx only governs the initial bootstrap, before the heap exists.
	// Once the heap is built, shards discovered by a later topology change
	// are queued onto pending instead of re-entering the priming loop.
	if !r.heapBuilt {
		if r.primeIdx < len(r.sources) {
			return r.primeNext(env)
		}
		r.buildHeap()
	}
	return r.drainHeap(env)
}

func (r *receiveIter) primeNext(env *Env) (bool, error) {
	src := r.sources[r.primeIdx]
	page, err := r.performFetch(env, r.buildRequest(env, src.id, nil, maxFetchRowLimit))
	if err != nil {
		return false, err
	}
	if page == nil {
		return false, nil
	}
	r.applyPage(src, page)
	r.primeIdx++
	if r.primeIdx < len(r.sources) {
		env.NeedUserContinuation = true
		return false, nil
	}
	r.buildHeap()
	return r.drainHeap(env)
}

func (r *receiveIter) drainHeap(env *Env) (bool, error) {
	for r.h.Len() > 0 {
		top := r.h.sources[0]
		row := top.head()
		heap.Pop(r.h)
		top.advance()
		if top.hasBuffered() {
			heap.Push(r.h, top)
		} else if !top.done {
			if err := r.refill(env, top); err != nil {
				return false, err
			}
		}
		keep, err := r.tryEmit(env, row)
		if err != nil {
			return false, err
		}
		if keep {
			return true, nil
		}
	}
	if len(r.pending) > 0 {
		return r.drainPending(env)
	}
	return false, nil
}

// refill attempts one fetch for a source whose buffer just ran dry, pushing
// it back onto the heap on success or queuing it for a later call when the
// per-call fetch budget is already spent.
func (r *receiveIter) refill(env *Env, src *recvSource) error {
	page, err := r.performFetch(env, r.buildRequest(env, src.id, src.contKey, r.fetchLimit(env)))
	if err != nil {
		if queryerr.IsRetryable(err) {
			r.pending = append(r.pending, src)
		}
		return err
	}
	if page == nil {
		r.pending = append(r.pending, src)
		return nil
	}
	r.applyPage(src, page)
	if src.hasBuffered() {
		heap.Push(r.h, src)
	} else if !src.done {
		r.pending = append(r.pending, src)
	}
	return nil
}

func (r *receiveIter) drainPending(env *Env) (bool, error) {
	for len(r.pending) > 0 {
		src := r.pending[0]
		page, err := r.performFetch(env, r.buildRequest(env, src.id, src.contKey, r.fetchLimit(env)))
		if err != nil {
			return false, err
		}
		if page == nil {
			return false, nil
		}
		r.pending = r.pending[1:]
		r.applyPage(src, page)
		if src.hasBuffered() {
			heap.Push(r.h, src)
			return r.drainHeap(env)
		}
		if !src.done {
			r.pending = append(r.pending, src)
		}
	}
	return false, nil
}

// fetchLimit returns maxFetchRowLimit for every mode except all-partitions
// phase 2, where it is computed dynamically from remaining memory (spec
// §4.7: floor((memCap-dedupMem)/avgBytesPerRow), clamped to 2048).
func (r *receiveIter) fetchLimit(env *Env) int {
	if r.dist != queryplan.DistAllPartitions {
		return maxFetchRowLimit
	}
	n, _ := r.phase2RowLimit(env)
	return n
}

func (r *receiveIter) phase2RowLimit(env *Env) (int, error) {
	capBytes := env.Mem.Cap()
	if capBytes <= 0 {
		return maxFetchRowLimit, nil
	}
	avg := int64(128)
	if r.rowsSeen > 0 {
		avg = r.bytesSeen / r.rowsSeen
		if avg < 1 {
			avg = 1
		}
	}
	remaining := capBytes - r.dedupMemCharged
	limit := remaining / avg
	if limit > maxFetchRowLimit {
		limit = maxFetchRowLimit
	}
	if limit <= 0 {
		return 0, queryerr.MemoryLimitExceeded(capBytes / (1024 * 1024)).WithIterator("RECV")
	}
	return int(limit), nil
}

// --- All-partitions two-phase mode ---

func (r *receiveIter) nextAllPartitions(env *Env) (bool, error) {
	if !r.phase1Done {
		if _, err := r.advancePhase1(env); err != nil {
			return false, err
		}
		if !r.phase1Done {
			return false, nil
		}
	}
	return r.drainHeap(env)
}

func (r *receiveIter) advancePhase1(env *Env) (bool, error) {
	page, err := r.performFetch(env, r.buildRequest(env, "", r.phase1ContKey, maxFetchRowLimit))
	if err != nil {
		return false, err
	}
	if page == nil {
		return false, nil
	}
	if err := r.validatePhase1Page(page); err != nil {
		return false, err
	}
	r.phase1First = false
	if err := r.ingestPhase1Page(page); err != nil {
		return false, err
	}
	r.phase1ContKey = page.ContinuationKey
	if !page.Phase1Continuing {
		r.finishPhase1()
	}
	return false, nil
}

func (r *receiveIter) validatePhase1Page(page *rpc.Page) error {
	if r.phase1First && page.PartitionIDs == nil {
		return queryerr.BadProtocol("RECV: all-partitions phase 1 marker missing from first response").WithIterator("RECV")
	}
	if page.Phase1Continuing && len(page.ContinuationKey) == 0 {
		return queryerr.BadProtocol("RECV: all-partitions phase 1 response lacks a continuation key while still continuing").WithIterator("RECV")
	}
	if len(page.PartitionIDs) != len(page.RowsPerPartitionID) {
		return queryerr.BadProtocol("RECV: partitionIds length %d != numResultsPerPartitionId length %d",
			len(page.PartitionIDs), len(page.RowsPerPartitionID)).WithIterator("RECV")
	}
	return nil
}

func (r *receiveIter) ingestPhase1Page(page *rpc.Page) error {
	if r.phase1Partitions == nil {
		r.phase1Partitions = map[string]*recvSource{}
	}
	off := 0
	for i, pid := range page.PartitionIDs {
		n := page.RowsPerPartitionID[i]
		if n < 0 || off+n > len(page.Rows) {
			return queryerr.BadProtocol("RECV: row slice for partition %s exceeds page length", pid).WithIterator("RECV")
		}
		rows := page.Rows[off : off+n]
		off += n
		src, ok := r.phase1Partitions[pid]
		if !ok {
			src = &recvSource{id: pid}
			r.phase1Partitions[pid] = src
			r.phase1Order = append(r.phase1Order, pid)
		}
		src.rows = append(src.rows, rows...)
		if i < len(page.PartitionContKeys) {
			src.contKey = page.PartitionContKeys[i]
		}
		src.done = len(src.contKey) == 0
	}
	if off != len(page.Rows) {
		return queryerr.BadProtocol("RECV: declared partition row counts (%d) do not match page length (%d)",
			off, len(page.Rows)).WithIterator("RECV")
	}
	return nil
}

func (r *receiveIter) finishPhase1() {
	r.sources = make([]*recvSource, len(r.phase1Order))
	for i, pid := range r.phase1Order {
		r.sources[i] = r.phase1Partitions[pid]
	}
	r.primeIdx = len(r.sources) // already primed by phase 1 itself
	r.buildHeap()
	r.phase1Done = true
}

func (r *receiveIter) Reset(env *Env, resetRegister bool) error {
	r.simple = nil
	r.sources = nil
	r.knownShardIDs = nil
	r.primeIdx = 0
	r.h = nil
	r.heapBuilt = false
	r.pending = nil
	r.phase1Partitions = map[string]*recvSource{}
	r.phase1Order = nil
	r.phase1ContKey = nil
	r.phase1First = true
	r.phase1Done = false
	r.dedup = nil
	if r.dedupMemCharged > 0 {
		env.Mem.Dec(r.dedupMemCharged)
	}
	r.dedupMemCharged = 0
	r.bytesSeen, r.rowsSeen = 0, 0
	if resetRegister {
		env.SetReg(r.resPos, value.Empty)
	}
	return nil
}
