// Package memory provides an in-memory DataSource for tests, demos, and
// lightweight deployments. Rows are seeded at construction time and the
// store is read-only afterwards, matching the data source contract.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tally-ai/tally/pkg/query"
	"github.com/tally-ai/tally/pkg/storage"
)

// Store is an in-memory DataSource.
type Store struct {
	mu       sync.RWMutex
	wl       query.Whitelist
	entities map[string][]query.Row
}

// Ensure Store implements storage.DataSource at compile time.
var _ storage.DataSource = (*Store)(nil)

// New creates an empty Store bound to the given whitelist. The whitelist
// supplies each entity's key and time fields.
func New(wl query.Whitelist) *Store {
	return &Store{
		wl:       wl,
		entities: make(map[string][]query.Row),
	}
}

// Seed appends rows for an entity. Intended for construction time only;
// rows are copied so later mutation by the caller cannot leak in.
func (s *Store) Seed(entity string, rows []query.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		cp := make(query.Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		s.entities[entity] = append(s.entities[entity], cp)
	}
}

// FetchLatest returns the record with the latest time-field value among
// those matching the key, or storage.ErrNotFound.
func (s *Store) FetchLatest(ctx context.Context, entity, key string) (query.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, ok := s.wl.Rules(entity)
	if !ok {
		return nil, &query.UnknownEntityError{Entity: entity}
	}

	var latest query.Row
	for _, row := range s.entities[entity] {
		if fmt.Sprintf("%v", row[rules.KeyField]) != key {
			continue
		}
		if latest == nil || laterThan(row[rules.TimeField], latest[rules.TimeField]) {
			latest = row
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

// Select answers a validated request by evaluating its predicate
// conjunction over the seeded rows.
func (s *Store) Select(ctx context.Context, req *query.Request) (*query.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, ok := s.wl.Rules(req.Entity)
	if !ok {
		return nil, &query.UnknownEntityError{Entity: req.Entity}
	}

	var matched []query.Row
	for _, row := range s.entities[req.Entity] {
		if matchesAll(row, req.Filters) {
			matched = append(matched, row)
		}
	}

	if req.Aggregate != query.AggNone {
		return aggregate(matched, req)
	}

	// Deterministic ordering by key field, then clamp to the limit.
	sort.SliceStable(matched, func(i, j int) bool {
		return fmt.Sprintf("%v", matched[i][rules.KeyField]) < fmt.Sprintf("%v", matched[j][rules.KeyField])
	})
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}
	return &query.Result{Rows: matched}, nil
}

// Close implements storage.DataSource; the memory store holds nothing to
// release.
func (s *Store) Close() error {
	return nil
}

// matchesAll evaluates the ANDed filter clauses against one row.
func matchesAll(row query.Row, filters []query.Filter) bool {
	for _, f := range filters {
		if !matches(row[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(have any, f query.Filter) bool {
	switch f.Op {
	case query.OpEq:
		return equal(have, f.Value)
	case query.OpNe:
		return !equal(have, f.Value)
	case query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		cmp, ok := compare(have, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case query.OpGt:
			return cmp > 0
		case query.OpGte:
			return cmp >= 0
		case query.OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case query.OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range values {
			if equal(have, v) {
				return true
			}
		}
		return false
	case query.OpContains:
		hs, ok1 := have.(string)
		ws, ok2 := f.Value.(string)
		return ok1 && ok2 && strings.Contains(strings.ToLower(hs), strings.ToLower(ws))
	default:
		return false
	}
}

func equal(a, b any) bool {
	if fa, ok1 := toFloat(a); ok1 {
		if fb, ok2 := toFloat(b); ok2 {
			return fa == fb
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compare orders two values, numerically when both are numbers,
// lexically otherwise. Times compare chronologically.
func compare(a, b any) (int, bool) {
	if ta, ok1 := toTime(a); ok1 {
		if tb, ok2 := toTime(b); ok2 {
			return ta.Compare(tb), true
		}
	}
	if fa, ok1 := toFloat(a); ok1 {
		if fb, ok2 := toFloat(b); ok2 {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	sa, ok1 := a.(string)
	sb, ok2 := b.(string)
	if !ok1 || !ok2 {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func laterThan(a, b any) bool {
	cmp, ok := compare(a, b)
	return ok && cmp > 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// aggregate computes the request's aggregate over the matched rows,
// grouped when group_by fields are present.
func aggregate(rows []query.Row, req *query.Request) (*query.Result, error) {
	if len(req.GroupBy) == 0 {
		v, err := aggregateValue(rows, req)
		if err != nil {
			return nil, err
		}
		return &query.Result{Value: &v}, nil
	}

	type bucket struct {
		key  map[string]any
		rows []query.Row
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, row := range rows {
		var parts []string
		key := make(map[string]any, len(req.GroupBy))
		for _, g := range req.GroupBy {
			key[g] = row[g]
			parts = append(parts, fmt.Sprintf("%v", row[g]))
		}
		id := strings.Join(parts, "\x00")
		b, ok := buckets[id]
		if !ok {
			b = &bucket{key: key}
			buckets[id] = b
			order = append(order, id)
		}
		b.rows = append(b.rows, row)
	}

	sort.Strings(order)

	result := &query.Result{}
	for _, id := range order {
		b := buckets[id]
		v, err := aggregateValue(b.rows, req)
		if err != nil {
			return nil, err
		}
		result.Groups = append(result.Groups, query.Group{Key: b.key, Value: v})
	}
	return result, nil
}

func aggregateValue(rows []query.Row, req *query.Request) (float64, error) {
	if req.Aggregate == query.AggCount {
		return float64(len(rows)), nil
	}

	var (
		sum   float64
		count int
		min   float64
		max   float64
	)
	for _, row := range rows {
		f, ok := toFloat(row[req.AggregateField])
		if !ok {
			continue
		}
		if count == 0 {
			min, max = f, f
		} else {
			if f < min {
				min = f
			}
			if f > max {
				max = f
			}
		}
		sum += f
		count++
	}

	switch req.Aggregate {
	case query.AggSum:
		return sum, nil
	case query.AggAvg:
		if count == 0 {
			return 0, nil
		}
		return sum / float64(count), nil
	case query.AggMin:
		return min, nil
	case query.AggMax:
		return max, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q", req.Aggregate)
	}
}
