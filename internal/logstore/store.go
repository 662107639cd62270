// Package logstore is a Postgres-backed permalog.Log for deployments that
// run their own durable log instead of the external storage network.
// Records are append-only rows; tags index into a GIN-backed jsonb column
// and cursors encode the row sequence.
package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DanTehrani/story-form-interface/pkg/permalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS log_records (
	seq BIGSERIAL PRIMARY KEY,
	tx_id TEXT NOT NULL UNIQUE,
	data BYTEA NOT NULL,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS log_records_tags_idx ON log_records USING GIN (tags jsonb_path_ops);
`

type Store struct {
	pool *pgxpool.Pool
}

var _ permalog.Log = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// EnsureSchema creates the append-only table and its tag index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", permalog.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, data []byte, tags []permalog.Tag) (string, error) {
	id := permalog.TxID(data, tags)
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	// Content-addressed: a duplicate payload resolves to the existing row.
	_, err = s.pool.Exec(ctx, `
INSERT INTO log_records(tx_id, data, tags) VALUES($1, $2, $3::jsonb)
ON CONFLICT (tx_id) DO NOTHING`, id, data, string(tagsJSON))
	if err != nil {
		return "", fmt.Errorf("%w: append: %v", permalog.ErrUnavailable, err)
	}
	return id, nil
}

func (s *Store) Query(ctx context.Context, q permalog.Query) (permalog.QueryResult, error) {
	first := q.First
	if first < 1 {
		first = 1
	}
	before := uint64(0)
	if q.After != "" {
		seq, err := permalog.DecodeCursor(q.After)
		if err != nil {
			return permalog.QueryResult{}, err
		}
		before = seq
	}
	tagsJSON, err := json.Marshal(q.Tags)
	if err != nil {
		return permalog.QueryResult{}, err
	}

	// Fetch one extra row: the log's continuation signal, not a count guess.
	rows, err := s.pool.Query(ctx, `
SELECT seq, tx_id, data, tags FROM log_records
WHERE tags @> $1::jsonb AND ($2::bigint = 0 OR seq < $2)
ORDER BY seq DESC
LIMIT $3`, string(tagsJSON), before, first+1)
	if err != nil {
		return permalog.QueryResult{}, fmt.Errorf("%w: query: %v", permalog.ErrUnavailable, err)
	}
	defer rows.Close()

	var res permalog.QueryResult
	for rows.Next() {
		var (
			seq      uint64
			rec      permalog.Record
			tagsBlob []byte
		)
		if err := rows.Scan(&seq, &rec.ID, &rec.Data, &tagsBlob); err != nil {
			return permalog.QueryResult{}, fmt.Errorf("%w: scan: %v", permalog.ErrUnavailable, err)
		}
		if err := json.Unmarshal(tagsBlob, &rec.Tags); err != nil {
			return permalog.QueryResult{}, err
		}
		if len(res.Edges) == first {
			res.HasNextPage = true
			break
		}
		res.Edges = append(res.Edges, permalog.Edge{Cursor: permalog.EncodeCursor(seq), Record: rec})
	}
	if err := rows.Err(); err != nil {
		return permalog.QueryResult{}, fmt.Errorf("%w: rows: %v", permalog.ErrUnavailable, err)
	}
	return res, nil
}

func (s *Store) Get(ctx context.Context, id string) (permalog.Record, bool, error) {
	var (
		rec      permalog.Record
		tagsBlob []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT tx_id, data, tags FROM log_records WHERE tx_id = $1`, id).
		Scan(&rec.ID, &rec.Data, &tagsBlob)
	if errors.Is(err, pgx.ErrNoRows) {
		return permalog.Record{}, false, nil
	}
	if err != nil {
		return permalog.Record{}, false, fmt.Errorf("%w: get: %v", permalog.ErrUnavailable, err)
	}
	if err := json.Unmarshal(tagsBlob, &rec.Tags); err != nil {
		return permalog.Record{}, false, err
	}
	return rec, true, nil
}
