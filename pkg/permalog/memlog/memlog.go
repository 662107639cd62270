// Package memlog is an in-memory permalog.Log with the same ordering and
// continuation semantics as the durable stores. It backs tests and local
// runs without Postgres.
package memlog

import (
	"context"
	"sync"

	"github.com/DanTehrani/story-form-interface/pkg/permalog"
)

type entry struct {
	seq    uint64
	record permalog.Record
}

type Log struct {
	mu      sync.Mutex
	entries []entry
	byID    map[string]int
	nextSeq uint64
}

var _ permalog.Log = (*Log)(nil)

func New() *Log {
	return &Log{byID: map[string]int{}, nextSeq: 1}
}

func (l *Log) Append(ctx context.Context, data []byte, tags []permalog.Tag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := permalog.TxID(data, tags)
	if i, ok := l.byID[id]; ok {
		// Content-addressed: identical payloads land on the same transaction.
		return l.entries[i].record.ID, nil
	}
	rec := permalog.Record{
		ID:   id,
		Data: append([]byte(nil), data...),
		Tags: append([]permalog.Tag(nil), tags...),
	}
	l.entries = append(l.entries, entry{seq: l.nextSeq, record: rec})
	l.byID[id] = len(l.entries) - 1
	l.nextSeq++
	return id, nil
}

// Query walks matches newest first. The continuation signal reflects
// whether a further match exists past the returned page.
func (l *Log) Query(ctx context.Context, q permalog.Query) (permalog.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return permalog.QueryResult{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	before := uint64(0)
	if q.After != "" {
		seq, err := permalog.DecodeCursor(q.After)
		if err != nil {
			return permalog.QueryResult{}, err
		}
		before = seq
	}
	first := q.First
	if first < 1 {
		first = 1
	}

	var res permalog.QueryResult
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if before != 0 && e.seq >= before {
			continue
		}
		if !matches(e.record.Tags, q.Tags) {
			continue
		}
		if len(res.Edges) == first {
			res.HasNextPage = true
			return res, nil
		}
		res.Edges = append(res.Edges, permalog.Edge{
			Cursor: permalog.EncodeCursor(e.seq),
			Record: e.record,
		})
	}
	return res, nil
}

func (l *Log) Get(ctx context.Context, id string) (permalog.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return permalog.Record{}, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.byID[id]
	if !ok {
		return permalog.Record{}, false, nil
	}
	return l.entries[i].record, true, nil
}

func matches(have, want []permalog.Tag) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h.Name == w.Name && h.Value == w.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
