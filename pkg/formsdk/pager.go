package formsdk

import (
	"context"
	"encoding/json"

	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/permalog"
	"github.com/DanTehrani/story-form-interface/pkg/submission"
)

// remoteLog adapts the gateway's /log/query endpoint to permalog.Log, so a
// listing session can run the cursor pagination engine client-side against
// the remote log. Appends and point reads go through the typed endpoints.
type remoteLog struct {
	client *Client
}

var _ permalog.Log = remoteLog{}

func (l remoteLog) Append(ctx context.Context, data []byte, tags []permalog.Tag) (string, error) {
	return "", permalog.ErrUnavailable
}

func (l remoteLog) Get(ctx context.Context, id string) (permalog.Record, bool, error) {
	return permalog.Record{}, false, permalog.ErrUnavailable
}

func (l remoteLog) Query(ctx context.Context, q permalog.Query) (permalog.QueryResult, error) {
	res, err := postJSON[permalog.QueryResult](ctx, l.client, "/log/query", q)
	if err != nil {
		return permalog.QueryResult{}, err
	}
	return *res, nil
}

// SubmissionPager is a per-session cursor walk over one form's submissions.
type SubmissionPager struct {
	paginator *permalog.Paginator
}

// NewSubmissionPager opens a listing session. The page size must stay
// constant for the session; backward paging depends on it.
func (c *Client) NewSubmissionPager(formID string, pageSize int) *SubmissionPager {
	tags := []permalog.Tag{
		{Name: form.TagType, Value: form.RecordTypeSubmission},
		{Name: form.TagFormID, Value: formID},
	}
	return &SubmissionPager{paginator: permalog.NewPaginator(remoteLog{client: c}, tags, pageSize)}
}

func (p *SubmissionPager) Next(ctx context.Context) ([]submission.Submission, error) {
	page, err := p.paginator.Next(ctx)
	if err != nil {
		return nil, err
	}
	return decodeSubmissions(page)
}

// Previous returns the preceding page; false means the session is already
// on its first page and nothing was fetched.
func (p *SubmissionPager) Previous(ctx context.Context) ([]submission.Submission, bool, error) {
	page, ok, err := p.paginator.Previous(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	subs, err := decodeSubmissions(page)
	return subs, true, err
}

func (p *SubmissionPager) HasNextPage() bool     { return p.paginator.HasNextPage() }
func (p *SubmissionPager) HasPreviousPage() bool { return p.paginator.HasPreviousPage() }

func decodeSubmissions(page permalog.Page) ([]submission.Submission, error) {
	subs := make([]submission.Submission, 0, len(page.Records))
	for _, rec := range page.Records {
		var sub submission.Submission
		if err := json.Unmarshal(rec.Data, &sub); err != nil {
			return nil, err
		}
		sub.TxID = rec.ID
		subs = append(subs, sub)
	}
	return subs, nil
}
