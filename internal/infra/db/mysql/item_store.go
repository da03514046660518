package mysql

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

// Record types stored in analysis_items. The table is a document store with
// queryable attribute columns; the full record lives in the payload column.
const (
	typeAnalysis      = "analysis"
	typeAnalysisCache = analysisdomain.CacheItemType
	typeGeocodeItem   = geodomain.CacheItemType
	typeGeocodeBatch  = geodomain.BatchRecordType
)

// ItemStore implements the analysis repository and the geocoding cache on one
// analysis_items table. Expired rows are treated as absent; deletion is the
// store operator's concern (a periodic purge on the ttl column).
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const insertItem = `
INSERT INTO analysis_items
(id, user_id, type, created_at, ttl, source_file_key, normalized_address, payload)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE payload=VALUES(payload), ttl=VALUES(ttl);
`

func (s *ItemStore) put(ctx context.Context, id, userID, typ string, createdAt time.Time, ttl int64, fileKey, normalized string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s record: %w", typ, err)
	}
	_, err = s.db.ExecContext(ctx, insertItem,
		id, userID, typ, createdAt, ttl, fileKey, normalized, data)
	return err
}

//
// ==== analysis.Repository ====
//

func (s *ItemStore) SaveAnalysis(ctx context.Context, a *analysisdomain.AnalysisResult) error {
	return s.put(ctx, string(a.ID), a.UserID, typeAnalysis, a.CreatedAt, a.TTL, a.SourceFileKey, "", a)
}

func (s *ItemStore) Get(ctx context.Context, userID string, id analysisdomain.AnalysisID) (*analysisdomain.AnalysisResult, error) {
	const q = `
SELECT payload FROM analysis_items
WHERE user_id=? AND id=? AND type=? AND ttl > ?
LIMIT 1;
`
	var data []byte
	err := s.db.QueryRowContext(ctx, q, userID, id, typeAnalysis, time.Now().Unix()).Scan(&data)
	if err != nil {
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
WHERE user_id=? AND type=? AND ttl > ?
ORDER BY created_at DESC
LIMIT ?;
`
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

// CachedResult returns the newest non-expired cache entry for the file key,
// or nil when there is none.
func (s *ItemStore) CachedResult(ctx context.Context, userID, sourceFileKey string) (*analysisdomain.CacheItem, error) {
	const q = `
SELECT payload FROM analysis_items
WHERE user_id=? AND type=? AND source_file_key=? AND ttl > ?
ORDER BY created_at DESC
LIMIT 1;
`
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

//
// ==== geocoding.Cache ====
//

func (s *ItemStore) Lookup(ctx context.Context, userID string, normalized []string) ([]*geodomain.CacheItem, error) {
	if len(normalized) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(normalized)), ",")
	q := fmt.Sprintf(`
SELECT payload FROM analysis_items
WHERE user_id=? AND type=? AND ttl > ? AND normalized_address IN (%s)
ORDER BY created_at DESC;
`, placeholders)

	args := []any{userID, typeGeocodeItem, time.Now().Unix()}
	for _, n := range normalized {
		args = append(args, n)
	}

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
