package aggregate

import "github.com/oracle/nosql-go-queryexec/pkgs/value"

// Group is one row's worth of running aggregator state: the group-by column
// values (for re-emitting alongside the aggregate results) and one
// Aggregator per aggregate column.
type Group struct {
	Key         string
	ByCols      []value.Value
	Aggregators []Aggregator
}

// Table is the grouping hash table keyed by a serialized grouping key,
// preserving first-seen order so output is deterministic for a given input
// order even though group membership is unordered.
type Table struct {
	index map[string]*Group
	order []*Group
}

// NewTable builds an empty Table.
func NewTable() *Table {
	return &Table{index: map[string]*Group{}}
}

// GroupFor returns the Group for key, creating it via newAggs if this is the
// first row seen for that key. newAggs is called once per new group to build
// that group's column aggregators, in column order.
func (t *Table) GroupFor(key string, byCols []value.Value, newAggs func() ([]Aggregator, error)) (*Group, bool, error) {
	if g, ok := t.index[key]; ok {
		return g, false, nil
	}
	aggs, err := newAggs()
	if err != nil {
		return nil, false, err
	}
	g := &Group{Key: key, ByCols: byCols, Aggregators: aggs}
	t.index[key] = g
	t.order = append(t.order, g)
	return g, true, nil
}

// Groups returns every group in first-seen order.
func (t *Table) Groups() []*Group { return t.order }

// Len reports the number of distinct groups currently held.
func (t *Table) Len() int { return len(t.order) }
