// Package formsdk is a typed HTTP client for the forms gateway.
package formsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DanTehrani/story-form-interface/pkg/form"
	"github.com/DanTehrani/story-form-interface/pkg/permalog"
	"github.com/DanTehrani/story-form-interface/pkg/submission"
	"github.com/DanTehrani/story-form-interface/pkg/zkproof"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// PublishRequest mirrors the gateway's publish shape: signed content plus
// the declared content-derived ID.
type PublishRequest struct {
	ID string `json:"id"`
	form.Content
	Signature string `json:"signature"`
}

type PublishResponse struct {
	RequestID string    `json:"request_id"`
	Form      form.Form `json:"form"`
}

type FormResponse struct {
	RequestID string    `json:"request_id"`
	Form      form.Form `json:"form"`
	Indexed   bool      `json:"indexed"`
}

type FormsPage struct {
	RequestID   string      `json:"request_id"`
	Forms       []form.Form `json:"forms"`
	Cursors     []string    `json:"cursors"`
	HasNextPage bool        `json:"hasNextPage"`
}

type SubmitRequest struct {
	FormID           string             `json:"formId"`
	Answers          []string           `json:"answers"`
	UnixTime         int64              `json:"unixTime"`
	AppID            string             `json:"appId"`
	MembershipProof  *zkproof.FullProof `json:"membershipProof,omitempty"`
	AttestationProof *zkproof.FullProof `json:"attestationProof,omitempty"`
	Respondent       string             `json:"respondent,omitempty"`
	Signature        string             `json:"signature,omitempty"`
}

type SubmitResponse struct {
	RequestID  string                `json:"request_id"`
	Submission submission.Submission `json:"submission"`
}

type SubmissionsPage struct {
	RequestID   string                  `json:"request_id"`
	Submissions []submission.Submission `json:"submissions"`
	Cursors     []string                `json:"cursors"`
	HasNextPage bool                    `json:"hasNextPage"`
}

type VerifyResponse struct {
	RequestID string         `json:"request_id"`
	TxID      string         `json:"txId"`
	Status    zkproof.Status `json:"status"`
	Pending   bool           `json:"pending"`
	Details   map[string]any `json:"details"`
}

func (c *Client) Publish(ctx context.Context, in PublishRequest) (*PublishResponse, error) {
	return postJSON[PublishResponse](ctx, c, "/forms", in)
}

func (c *Client) GetForm(ctx context.Context, formID string) (*FormResponse, error) {
	return getJSON[FormResponse](ctx, c, "/forms/"+url.PathEscape(formID))
}

func (c *Client) ListForms(ctx context.Context, owner string, first int, after string) (*FormsPage, error) {
	q := url.Values{}
	if owner != "" {
		q.Set("owner", owner)
	}
	q.Set("first", strconv.Itoa(first))
	if after != "" {
		q.Set("after", after)
	}
	return getJSON[FormsPage](ctx, c, "/forms?"+q.Encode())
}

func (c *Client) Submit(ctx context.Context, in SubmitRequest) (*SubmitResponse, error) {
	return postJSON[SubmitResponse](ctx, c, "/submissions", in)
}

func (c *Client) ListSubmissions(ctx context.Context, formID string, first int, after string) (*SubmissionsPage, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(first))
	if after != "" {
		q.Set("after", after)
	}
	return getJSON[SubmissionsPage](ctx, c, "/forms/"+url.PathEscape(formID)+"/submissions?"+q.Encode())
}

func (c *Client) Reverify(ctx context.Context, txID string) (*VerifyResponse, error) {
	return postJSON[VerifyResponse](ctx, c, "/submissions/"+url.PathEscape(txID)+"/verify", struct{}{})
}

func postJSON[T any](ctx context.Context, c *Client, path string, in any) (*T, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON[T](c, req)
}

func getJSON[T any](ctx context.Context, c *Client, path string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return doJSON[T](c, req)
}

func doJSON[T any](c *Client, req *http.Request) (*T, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", permalog.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("http %d: %v", resp.StatusCode, errBody)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
