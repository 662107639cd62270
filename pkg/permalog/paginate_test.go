package permalog_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DanTehrani/story-form-interface/pkg/permalog"
	"github.com/DanTehrani/story-form-interface/pkg/permalog/memlog"
)

var noteTags = []permalog.Tag{{Name: "Type", Value: "note"}}

// seedLog appends n matching records interleaved with unrelated noise and
// returns the matching payloads in query order (newest first).
func seedLog(t *testing.T, log *memlog.Log, n int) []string {
	t.Helper()
	ctx := context.Background()
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		payload := fmt.Sprintf("note-%03d", i)
		_, err := log.Append(ctx, []byte(payload), noteTags)
		require.NoError(t, err)
		_, err = log.Append(ctx, []byte(fmt.Sprintf("noise-%03d", i)), []permalog.Tag{{Name: "Type", Value: "noise"}})
		require.NoError(t, err)
		want = append([]string{payload}, want...)
	}
	return want
}

func collectForward(t *testing.T, p *permalog.Paginator) ([]string, []int) {
	t.Helper()
	ctx := context.Background()
	all := []string{}
	var sizes []int
	for {
		page, err := p.Next(ctx)
		require.NoError(t, err)
		if len(page.Records) == 0 {
			require.False(t, page.HasNextPage)
			return all, sizes
		}
		sizes = append(sizes, len(page.Records))
		for _, r := range page.Records {
			all = append(all, string(r.Data))
		}
		if !page.HasNextPage {
			return all, sizes
		}
	}
}

func TestPaginatorForwardWalk(t *testing.T) {
	const pageSize = 4
	for _, n := range []int{0, 1, pageSize - 1, pageSize, pageSize + 1, 3 * pageSize} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			log := memlog.New()
			want := seedLog(t, log, n)

			p := permalog.NewPaginator(log, noteTags, pageSize)
			got, sizes := collectForward(t, p)
			require.Equal(t, want, got)

			// Every page before the last is exactly pageSize records.
			for i, s := range sizes {
				if i < len(sizes)-1 {
					require.Equal(t, pageSize, s)
				}
			}
			require.False(t, p.HasNextPage())
		})
	}
}

func TestPaginatorExhaustionIsSticky(t *testing.T) {
	log := memlog.New()
	seedLog(t, log, 3)
	p := permalog.NewPaginator(log, noteTags, 10)

	ctx := context.Background()
	page, err := p.Next(ctx)
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	require.False(t, page.HasNextPage)

	// Further Next calls do not re-query or wrap around.
	page, err = p.Next(ctx)
	require.NoError(t, err)
	require.Empty(t, page.Records)
}

func TestPaginatorBackwardReplaysExactPage(t *testing.T) {
	const pageSize = 3
	log := memlog.New()
	seedLog(t, log, 10)
	p := permalog.NewPaginator(log, noteTags, pageSize)
	ctx := context.Background()

	page1, err := p.Next(ctx)
	require.NoError(t, err)
	page2, err := p.Next(ctx)
	require.NoError(t, err)
	page3, err := p.Next(ctx)
	require.NoError(t, err)
	require.True(t, p.HasPreviousPage())

	back2, ok, err := p.Previous(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, page2.Records, back2.Records)

	back1, ok, err := p.Previous(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, page1.Records, back1.Records)
	require.False(t, p.HasPreviousPage())

	// Forward again reaches the same third page.
	again2, err := p.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, page2.Records, again2.Records)
	again3, err := p.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, page3.Records, again3.Records)
}

func TestPaginatorPreviousOnFirstPageIsNoOp(t *testing.T) {
	log := memlog.New()
	seedLog(t, log, 5)
	p := permalog.NewPaginator(log, noteTags, 2)
	ctx := context.Background()

	// Before any fetch and on the first page alike.
	_, ok, err := p.Previous(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = p.Next(ctx)
	require.NoError(t, err)
	_, ok, err = p.Previous(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPaginatorBackwardOffPartialLastPage(t *testing.T) {
	// 7 records at page size 3: the last page holds a single record. Walking
	// off it backward must re-anchor cleanly.
	const pageSize = 3
	log := memlog.New()
	seedLog(t, log, 7)
	p := permalog.NewPaginator(log, noteTags, pageSize)
	ctx := context.Background()

	_, err := p.Next(ctx)
	require.NoError(t, err)
	page2, err := p.Next(ctx)
	require.NoError(t, err)
	page3, err := p.Next(ctx)
	require.NoError(t, err)
	require.Len(t, page3.Records, 1)
	require.False(t, page3.HasNextPage)

	back, ok, err := p.Previous(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, page2.Records, back.Records)
	require.True(t, back.HasNextPage)
	require.True(t, p.HasNextPage())
}

// shortPageLog answers every full query with one edge fewer than asked,
// while still raising the continuation signal. The Log contract allows
// this: HasNextPage is the log's own statement, never a function of how
// many edges came back.
type shortPageLog struct {
	inner *memlog.Log
}

func (s shortPageLog) Append(ctx context.Context, data []byte, tags []permalog.Tag) (string, error) {
	return s.inner.Append(ctx, data, tags)
}

func (s shortPageLog) Get(ctx context.Context, id string) (permalog.Record, bool, error) {
	return s.inner.Get(ctx, id)
}

func (s shortPageLog) Query(ctx context.Context, q permalog.Query) (permalog.QueryResult, error) {
	res, err := s.inner.Query(ctx, q)
	if err != nil {
		return res, err
	}
	if q.First > 1 && len(res.Edges) == q.First {
		res.Edges = res.Edges[:q.First-1]
		res.HasNextPage = true
	}
	return res, nil
}

func TestPaginatorHandlesShortPages(t *testing.T) {
	const pageSize = 3
	inner := memlog.New()
	want := seedLog(t, inner, 7)
	p := permalog.NewPaginator(shortPageLog{inner: inner}, noteTags, pageSize)

	// The walk sees pages of two until the tail; it must advance past each
	// short page rather than assume pageSize records landed.
	got, sizes := collectForward(t, p)
	require.Equal(t, want, got)
	require.Equal(t, []int{2, 2, 2, 1}, sizes)
	require.False(t, p.HasNextPage())

	// Backward off the tail replays the short third page intact.
	ctx := context.Background()
	back, ok, err := p.Previous(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, back.Records, 2)
	require.Equal(t, want[4:6], []string{string(back.Records[0].Data), string(back.Records[1].Data)})
}

func TestMemlogDedupe(t *testing.T) {
	log := memlog.New()
	ctx := context.Background()

	id1, err := log.Append(ctx, []byte("same"), noteTags)
	require.NoError(t, err)
	id2, err := log.Append(ctx, []byte("same"), noteTags)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	rec, found, err := log.Get(ctx, id1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "same", string(rec.Data))

	_, found, err = log.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	res, err := log.Query(ctx, permalog.Query{Tags: noteTags, First: 10})
	require.NoError(t, err)
	require.Len(t, res.Edges, 1)
	require.False(t, res.HasNextPage)
}
