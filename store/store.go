// Package store reads and writes member profiles in Postgres or SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

const profileColumns = `id, name, title, company, bio, skills, interests, business_challenges,
	location, industry, avatar_url, last_active_at, created_at`

// Filter narrows ListProfiles. Zero values do not filter.
type Filter struct {
	ExcludeID string
	Industry  string
	Location  string
	Limit     int
	Offset    int
}

// DefaultLimit caps list queries without an explicit limit.
const DefaultLimit = 50

// SQLStore is the profile store.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	log     logger.Logger
}

func NewSQLStore(db *sql.DB, dialect Dialect, log logger.Logger) *SQLStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SQLStore{db: db, dialect: dialect, log: log}
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// FetchProfile returns the profile with id, or ErrNotFound.
func (s *SQLStore) FetchProfile(ctx context.Context, id string) (*scoring.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := s.scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}
	return p, nil
}

// FetchProfiles loads many profiles in one query. The result is keyed by id;
// missing ids are simply absent.
func (s *SQLStore) FetchProfiles(ctx context.Context, ids []string) (map[string]*scoring.Profile, error) {
	out := make(map[string]*scoring.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := s.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	return out, nil
}

// ListProfiles returns candidates for viewerID, skipping the viewer and every
// profile the viewer dismissed. Results are ordered by id.
func (s *SQLStore) ListProfiles(ctx context.Context, viewerID string, f Filter) ([]*scoring.Profile, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	where = append(where, `id NOT IN (SELECT candidate_id FROM dismissed_matches WHERE viewer_id = `+arg(viewerID)+`)`)
	exclude := f.ExcludeID
	if exclude == "" {
		exclude = viewerID
	}
	where = append(where, `id <> `+arg(exclude))
	if f.Industry != "" {
		where = append(where, `industry = `+arg(f.Industry))
	}
	if f.Location != "" {
		where = append(where, `location LIKE `+arg("%"+f.Location+"%"))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY id LIMIT ` + arg(limit) + ` OFFSET ` + arg(max(f.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*scoring.Profile
	for rows.Next() {
		p, err := s.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// InsertProfile creates or replaces a profile.
func (s *SQLStore) InsertProfile(ctx context.Context, p *scoring.Profile) error {
	skills, interests, challenges := encodeList(p.Skills), encodeList(p.Interests), encodeList(p.BusinessChallenges)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, title = EXCLUDED.title, company = EXCLUDED.company,
			bio = EXCLUDED.bio, skills = EXCLUDED.skills, interests = EXCLUDED.interests,
			business_challenges = EXCLUDED.business_challenges, location = EXCLUDED.location,
			industry = EXCLUDED.industry, avatar_url = EXCLUDED.avatar_url,
			last_active_at = EXCLUDED.last_active_at, created_at = EXCLUDED.created_at`,
		p.ID, p.Name, p.Title, p.Company, p.Bio, skills, interests, challenges,
		p.Location, p.Industry, p.AvatarURL, nullTime(p.LastActiveAt), nullTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert profile %s: %w", p.ID, err)
	}
	return nil
}

// Dismiss hides candidateID from viewerID's later lists. Dismissing twice is a
// no-op.
func (s *SQLStore) Dismiss(ctx context.Context, viewerID, candidateID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dismissed_matches (viewer_id, candidate_id, dismissed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (viewer_id, candidate_id) DO NOTHING`,
		viewerID, candidateID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("dismiss %s for %s: %w", candidateID, viewerID, err)
	}
	return nil
}

// TouchLastActive records activity of id at t.
func (s *SQLStore) TouchLastActive(ctx context.Context, id string, t time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE profiles SET last_active_at = $1 WHERE id = $2`, t.UTC(), id); err != nil {
		return fmt.Errorf("touch %s: %w", id, err)
	}
	return nil
}

// Truncate removes every profile and dismissal.
func (s *SQLStore) Truncate(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM dismissed_matches`, `DELETE FROM profiles`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLStore) scanProfile(sc scanner) (*scoring.Profile, error) {
	var (
		p                             scoring.Profile
		skills, interests, challenges string
		lastActive, created           sql.NullTime
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Title, &p.Company, &p.Bio, &skills, &interests, &challenges,
		&p.Location, &p.Industry, &p.AvatarURL, &lastActive, &created); err != nil {
		return nil, err
	}
	p.Skills = s.decodeList(p.ID, "skills", skills)
	p.Interests = s.decodeList(p.ID, "interests", interests)
	p.BusinessChallenges = s.decodeList(p.ID, "business_challenges", challenges)
	if lastActive.Valid {
		t := lastActive.Time
		p.LastActiveAt = &t
	}
	if created.Valid {
		t := created.Time
		p.CreatedAt = &t
	}
	return &p, nil
}

// decodeList tolerates malformed list columns; the profile is still usable.
func (s *SQLStore) decodeList(id, column, raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.log.Warn("Malformed list column", map[string]interface{}{"profile_id": id, "column": column, "error": err})
		return nil
	}
	return list
}

func encodeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
