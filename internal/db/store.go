package db

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/maya/opportunity-hub/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FeedPageSize is the fixed page size for the published feed.
const FeedPageSize = 9

// selectCols is the column list shared by all opportunity queries.
const selectCols = `id, title, description, content, sections, tags, status,
	created_by, created_at, updated_at, engagement_count, like_count`

func scanOpportunity(scan func(dest ...interface{}) error) (models.Opportunity, error) {
	var o models.Opportunity
	var sectionsRaw []byte

	err := scan(
		&o.ID, &o.Title, &o.Description, &o.Content, &sectionsRaw, &o.Tags, &o.Status,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.EngagementCount, &o.LikeCount,
	)
	if err != nil {
		return o, err
	}

	o.Sections = map[string]models.Section{}
	if len(sectionsRaw) > 0 {
		_ = json.Unmarshal(sectionsRaw, &o.Sections)
	}
	if o.Tags == nil {
		o.Tags = []string{}
	}

	return o, nil
}

func (s *Store) CreateOpportunity(ctx context.Context, o *models.Opportunity) (uuid.UUID, error) {
	sectionsJSON, err := json.Marshal(o.Sections)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode sections: %w", err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, `
		INSERT INTO opportunities (title, description, content, sections, tags, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, o.Title, o.Description, o.Content, sectionsJSON, o.Tags, o.Status, o.CreatedBy).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert failed: %w", err)
	}

	return id, nil
}

// UpdateOpportunity overwrites the editable fields in place. Last write
// wins; only the creator may update.
func (s *Store) UpdateOpportunity(ctx context.Context, o *models.Opportunity) error {
	sectionsJSON, err := json.Marshal(o.Sections)
	if err != nil {
		return fmt.Errorf("failed to encode sections: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE opportunities
		SET title = $1, description = $2, content = $3, sections = $4, tags = $5,
		    status = $6, updated_at = NOW()
		WHERE id = $7 AND created_by = $8
	`, o.Title, o.Description, o.Content, sectionsJSON, o.Tags, o.Status, o.ID, o.CreatedBy)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("opportunity not found or not owned by user")
	}

	return nil
}

func (s *Store) GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	sql := fmt.Sprintf("SELECT %s FROM opportunities WHERE id = $1", selectCols)
	row := s.pool.QueryRow(ctx, sql, id)

	o, err := scanOpportunity(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	return &o, nil
}

// SetStatus moves an opportunity between draft and published in place.
func (s *Store) SetStatus(ctx context.Context, id, createdBy uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE opportunities SET status = $1, updated_at = NOW()
		WHERE id = $2 AND created_by = $3
	`, status, id, createdBy)
	if err != nil {
		return fmt.Errorf("status update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("opportunity not found or not owned by user")
	}
	return nil
}

func (s *Store) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE opportunities SET embedding = $1 WHERE id = $2
	`, pgvector.NewVector(embedding), id)
	return err
}

func (s *Store) IncrementLike(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE opportunities SET like_count = like_count + 1
		WHERE id = $1 AND status = 'published'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("published opportunity not found")
	}
	return nil
}

// FeedParams controls a feed page read.
type FeedParams struct {
	Tag            string
	Cursor         string
	Limit          int
	QueryEmbedding []float32 // when set, the page is ranked by similarity instead of paginated
}

// FeedResult is one page of published opportunities plus the cursor for
// the next page. NextCursor is empty when the page is the last one.
type FeedResult struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	NextCursor    string               `json:"next_cursor,omitempty"`
	Tags          []string             `json:"tags"`
}

// ListFeed reads a page of the published feed, newest first with id as
// tiebreak. Pages are keyed by an opaque cursor over (created_at, id),
// so repeated load-more calls never repeat a document while the store
// is unchanged.
func (s *Store) ListFeed(ctx context.Context, params FeedParams) (*FeedResult, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = FeedPageSize
	}

	where := "WHERE status = 'published'"
	var args []interface{}
	argIdx := 1

	if params.Tag != "" {
		where += fmt.Sprintf(" AND $%d = ANY(tags)", argIdx)
		args = append(args, params.Tag)
		argIdx++
	}

	var orderBy string
	if len(params.QueryEmbedding) > 0 {
		// Semantic search: rank the whole published set by similarity,
		// single page, no cursor.
		orderBy = fmt.Sprintf(`ORDER BY
			CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
			embedding <=> $%d ASC,
			created_at DESC, id DESC`, argIdx)
		args = append(args, pgvector.NewVector(params.QueryEmbedding))
		argIdx++
	} else {
		if params.Cursor != "" {
			cursorAt, cursorID, err := DecodeCursor(params.Cursor)
			if err != nil {
				return nil, fmt.Errorf("invalid cursor: %w", err)
			}
			where += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
			args = append(args, cursorAt, cursorID)
			argIdx += 2
		}
		orderBy = "ORDER BY created_at DESC, id DESC"
	}

	sql := fmt.Sprintf("SELECT %s FROM opportunities %s %s LIMIT $%d",
		selectCols, where, orderBy, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("feed query failed: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if opps == nil {
		opps = []models.Opportunity{}
	}

	result := &FeedResult{Opportunities: opps}
	if len(params.QueryEmbedding) == 0 && len(opps) == limit {
		last := opps[len(opps)-1]
		result.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}

	tags, err := s.ListPublishedTags(ctx)
	if err != nil {
		return nil, err
	}
	result.Tags = tags

	return result, nil
}

// ListPublishedTags returns the distinct tags across published
// opportunities for the feed filter bar.
func (s *Store) ListPublishedTags(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT unnest(tags) AS tag
		FROM opportunities
		WHERE status = 'published'
		ORDER BY tag
	`)
	if err != nil {
		return nil, fmt.Errorf("tag query failed: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err == nil {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// ListByCreator returns a user's own opportunities, optionally filtered
// by status, newest first. Backs the profile tabs.
func (s *Store) ListByCreator(ctx context.Context, userID uuid.UUID, status string) ([]models.Opportunity, error) {
	where := "WHERE created_by = $1"
	args := []interface{}{userID}
	if status != "" {
		where += " AND status = $2"
		args = append(args, status)
	}

	sql := fmt.Sprintf("SELECT %s FROM opportunities %s ORDER BY created_at DESC", selectCols, where)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	opps := []models.Opportunity{}
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var published int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities WHERE status = 'published'").Scan(&published)
	stats["published"] = published

	var tags int
	s.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT tag) FROM (SELECT unnest(tags) AS tag FROM opportunities WHERE status = 'published') t").Scan(&tags)
	stats["tags"] = tags

	var responses int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM responses").Scan(&responses)
	stats["responses"] = responses

	return stats, nil
}

// EncodeCursor packs a feed position into an opaque page token.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a page token produced by EncodeCursor.
func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad encoding: %w", err)
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad cursor format")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad timestamp: %w", err)
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("bad id: %w", err)
	}

	return createdAt, id, nil
}
