package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	analysisdomain "github.com/sitewise/cog/internal/domain/analysis"
	geodomain "github.com/sitewise/cog/internal/domain/geocoding"
)

const (
	typeAnalysis      = "analysis"
	typeAnalysisCache = analysisdomain.CacheItemType
	typeGeocodeItem   = geodomain.CacheItemType
	typeGeocodeBatch  = geodomain.BatchRecordType
)

// ItemStore is the Postgres twin of the MySQL store: one analysis_items
// table with queryable attributes plus a jsonb payload.
type ItemStore struct{ db *sql.DB }

func NewItemStore(db *sql.DB) *ItemStore { return &ItemStore{db: db} }

const insertItem = `
INSERT INTO analysis_items
(id, user_id, type, created_at, ttl, source_file_key, normalized_address, payload)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, ttl = EXCLUDED.ttl;`

func (s *ItemStore) put(ctx context.Context, id, userID, typ string, createdAt time.Time, ttl int64, fileKey, normalized string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s record: %w", typ, err)
	}
	_, err = s.db.ExecContext(ctx, insertItem,
		id, userID, typ, createdAt, ttl, fileKey, normalized, data)
	return err
}

func (s *ItemStore) SaveAnalysis(ctx context.Context, a *analysisdomain.AnalysisResult) error {
	return s.put(ctx, string(a.ID), a.UserID, typeAnalysis, a.CreatedAt, a.TTL, a.SourceFileKey, "", a)
}

func (s *ItemStore) Get(ctx context.Context, userID string, id analysisdomain.AnalysisID) (*analysisdomain.AnalysisResult, error) {
	const q = `
SELECT payload FROM analysis_items
WHERE user_id=$1 AND id=$2 AND type=$3 AND ttl > $4
LIMIT 1;`
	var data []byte
	if err := s.db.QueryRowContext(ctx, q, userID, id, typeAnalysis, time.Now().Unix()).Scan(&data); err != nil {
		return nil, err
	}
	var a analysisdomain.AnalysisResult
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding analysis %s: %w", id, err)
	}
	return &a, nil
}

func (s *ItemStore) Latest(ctx context.Context, userID string, limit int) ([]*analysisdomain.AnalysisResult, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT payload FROM analysis_items
WHERE user_id=$1 AND type=$2 AND ttl > $3
ORDER BY created_at DESC
LIMIT $4;`
	rows, err := s.db.QueryContext(ctx, q, userID, typeAnalysis, time.Now().Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*analysisdomain.AnalysisResult
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a analysisdomain.AnalysisResult
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decoding analysis row: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *ItemStore) SaveCacheItem(ctx context.Context, item *analysisdomain.CacheItem) error {
	return s.put(ctx, item.ID, item.UserID, typeAnalysisCache, item.CreatedAt, item.TTL, item.SourceFileKey, "", item)
}

func (s *ItemStore) CachedResult(ctx context.Context, userID, sourceFileKey string) (*analysisdomain.CacheItem, error) {
	const q = `
SELECT payload FROM analysis_items
WHERE user_id=$1 AND type=$2 AND source_file_key=$3 AND ttl > $4
ORDER BY created_at DESC
LIMIT 1;`
	var data []byte
	err := s.db.QueryRowContext(ctx, q, userID, typeAnalysisCache, sourceFileKey, time.Now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item analysisdomain.CacheItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decoding analysis cache item: %w", err)
	}
	return &item, nil
}

func (s *ItemStore) Lookup(ctx context.Context, userID string, normalized []string) ([]*geodomain.CacheItem, error) {
	if len(normalized) == 0 {
		return nil, nil
	}

	args := []any{userID, typeGeocodeItem, time.Now().Unix()}
	placeholders := make([]string, 0, len(normalized))
	for _, n := range normalized {
		args = append(args, n)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	q := fmt.Sprintf(`
SELECT payload FROM analysis_items
WHERE user_id=$1 AND type=$2 AND ttl > $3 AND normalized_address IN (%s)
ORDER BY created_at DESC;`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*geodomain.CacheItem
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item geodomain.CacheItem
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("decoding geocode cache item: %w", err)
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (s *ItemStore) SaveItem(ctx context.Context, item *geodomain.CacheItem) error {
	return s.put(ctx, item.ID, item.UserID, typeGeocodeItem, item.CreatedAt, item.TTL, "", item.NormalizedAddress, item)
}

func (s *ItemStore) SaveBatch(ctx context.Context, rec *geodomain.BatchRecord) error {
	return s.put(ctx, rec.ID, rec.UserID, typeGeocodeBatch, rec.CreatedAt, rec.TTL, "", "", rec)
}
