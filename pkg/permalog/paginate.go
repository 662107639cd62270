package permalog

import "context"

// Page is one fixed-size window over the filtered log.
type Page struct {
	Records     []Record
	HasNextPage bool
}

// Paginator walks a tag-filtered view of the log forward and backward in
// fixed-size pages. It is per-session, single-owner state: created fresh
// for a listing session, mutated only by its holder, discarded with the
// view.
//
// Each fetched page records the cursor of its last edge as that page's
// anchor; page n is always queried as "after anchor n-1", in both
// directions. Anchors are per page, not per record, so a log that returns
// a short page while signalling continuation still advances correctly.
// Navigation is only correct while the page size stays constant across the
// session; one query shape serves both directions.
type Paginator struct {
	log     Log
	tags    []Tag
	first   int
	anchors []string
	current int
	fetched bool
	hasNext bool
}

func NewPaginator(log Log, tags []Tag, pageSize int) *Paginator {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Paginator{log: log, tags: tags, first: pageSize}
}

// HasNextPage reports the log's continuation signal for the last fetched
// page.
func (p *Paginator) HasNextPage() bool { return p.hasNext }

// HasPreviousPage reports whether the session is past its first page.
func (p *Paginator) HasPreviousPage() bool { return p.current > 0 }

// Next fetches the first page, or the page after the last seen anchor.
func (p *Paginator) Next(ctx context.Context) (Page, error) {
	dest := 0
	if p.fetched {
		if !p.hasNext {
			return Page{}, nil
		}
		dest = p.current + 1
		// An empty page cannot leave an anchor to advance past; treat a
		// continuation signal without one as exhaustion rather than
		// re-fetching the same window.
		if dest > len(p.anchors) {
			return Page{}, nil
		}
	}
	page, err := p.fetchPage(ctx, dest)
	if err != nil {
		return Page{}, err
	}
	p.current = dest
	p.fetched = true
	return page, nil
}

// Previous re-anchors into the recorded page anchors and fetches the
// preceding page. On the first page it is a no-op: the boolean is false,
// no query runs and the page index does not underflow.
func (p *Paginator) Previous(ctx context.Context) (Page, bool, error) {
	if p.current == 0 {
		return Page{}, false, nil
	}
	dest := p.current - 1
	page, err := p.fetchPage(ctx, dest)
	if err != nil {
		return Page{}, false, err
	}
	p.current = dest
	return page, true, nil
}

func (p *Paginator) fetchPage(ctx context.Context, dest int) (Page, error) {
	after := ""
	if dest > 0 {
		after = p.anchors[dest-1]
	}
	res, err := p.log.Query(ctx, Query{Tags: p.tags, First: p.first, After: after})
	if err != nil {
		return Page{}, err
	}
	if len(res.Edges) > 0 {
		anchor := res.Edges[len(res.Edges)-1].Cursor
		if dest < len(p.anchors) {
			p.anchors[dest] = anchor
		} else {
			p.anchors = append(p.anchors, anchor)
		}
	}
	records := make([]Record, len(res.Edges))
	for i, e := range res.Edges {
		records[i] = e.Record
	}
	p.hasNext = res.HasNextPage
	return Page{Records: records, HasNextPage: res.HasNextPage}, nil
}
