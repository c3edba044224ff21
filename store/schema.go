package store

// Dialect selects driver-specific DDL. Queries are shared: both drivers accept
// $N placeholders and ON CONFLICT.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func schema(d Dialect) []string {
	ts := "TIMESTAMPTZ"
	if d == SQLite {
		ts = "DATETIME"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			skills TEXT NOT NULL DEFAULT '[]',
			interests TEXT NOT NULL DEFAULT '[]',
			business_challenges TEXT NOT NULL DEFAULT '[]',
			location TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			last_active_at ` + ts + ` NULL,
			created_at ` + ts + ` NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_industry ON profiles (industry)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_location ON profiles (location)`,
		`CREATE TABLE IF NOT EXISTS dismissed_matches (
			viewer_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			candidate_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			dismissed_at ` + ts + ` NOT NULL,
			PRIMARY KEY (viewer_id, candidate_id)
		)`,
	}
}
