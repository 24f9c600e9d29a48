package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"newspipe/internal/dedup"
	"newspipe/internal/logger"
	"newspipe/internal/ratelimit"
)

// ArticleRecord is the persisted output of the pipeline.
type ArticleRecord struct {
	ID                 string
	SourceURL          string
	NormalizedHeadline string
	Headline           string
	Content            string
	Tags               []string
	Category           string
	ImageURL           string
	AudioURL           string
	Status             string // published | draft
	BotID              string
	PublishedAt        time.Time
}

// Postgres backs the persistence contract: articles with natural-key
// duplicate guards, topic fingerprints, and provider rate-limit state.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(connectionString string) (*Postgres, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pg := &Postgres{db: db}
	if err := pg.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("postgres connected")
	return pg, nil
}

func (pg *Postgres) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id UUID PRIMARY KEY,
		source_url TEXT UNIQUE NOT NULL,
		normalized_headline TEXT UNIQUE NOT NULL,
		headline TEXT NOT NULL,
		content TEXT NOT NULL,
		tags TEXT[],
		category VARCHAR(50),
		image_url TEXT,
		audio_url TEXT,
		status VARCHAR(20) NOT NULL,
		bot_id VARCHAR(100),
		published_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
	CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);

	CREATE TABLE IF NOT EXISTS topic_fingerprints (
		id SERIAL PRIMARY KEY,
		key TEXT NOT NULL,
		words TEXT[] NOT NULL,
		original_text TEXT NOT NULL,
		bot_id VARCHAR(100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_fingerprints_created_at ON topic_fingerprints(created_at);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_key ON topic_fingerprints(key);

	CREATE TABLE IF NOT EXISTS provider_state (
		provider_id VARCHAR(100) PRIMARY KEY,
		limited BOOLEAN NOT NULL DEFAULT FALSE,
		limited_since TIMESTAMPTZ,
		reset_at TIMESTAMPTZ,
		failures INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := pg.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertArticleIfAbsent writes rec unless a record with the same source URL
// or normalized headline already exists. A conflict is a no-op success, not
// an error: concurrent runs inserting the same story resolve quietly.
func (pg *Postgres) InsertArticleIfAbsent(ctx context.Context, rec ArticleRecord) (inserted bool, err error) {
	query := `
		INSERT INTO articles (id, source_url, normalized_headline, headline, content, tags, category, image_url, audio_url, status, bot_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT DO NOTHING
	`
	res, err := pg.db.ExecContext(ctx, query,
		rec.ID, rec.SourceURL, rec.NormalizedHeadline, rec.Headline, rec.Content,
		pq.Array(rec.Tags), rec.Category, rec.ImageURL, rec.AudioURL,
		rec.Status, rec.BotID, rec.PublishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AudioURL returns the stored audio asset URL for an article, empty when
// none exists yet.
func (pg *Postgres) AudioURL(ctx context.Context, articleID string) (string, error) {
	var url sql.NullString
	err := pg.db.QueryRowContext(ctx,
		`SELECT audio_url FROM articles WHERE id = $1`, articleID).Scan(&url)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read audio url: %w", err)
	}
	return url.String, nil
}

// SetAudioURL attaches an audio asset to an already persisted article.
func (pg *Postgres) SetAudioURL(ctx context.Context, articleID, url string) error {
	_, err := pg.db.ExecContext(ctx,
		`UPDATE articles SET audio_url = $2 WHERE id = $1`, articleID, url)
	if err != nil {
		return fmt.Errorf("failed to set audio url: %w", err)
	}
	return nil
}

// SaveFingerprint implements dedup.Store.
func (pg *Postgres) SaveFingerprint(ctx context.Context, fp dedup.Fingerprint) error {
	_, err := pg.db.ExecContext(ctx, `
		INSERT INTO topic_fingerprints (key, words, original_text, bot_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, fp.Key, pq.Array(fp.Words), fp.Original, fp.BotID, fp.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save fingerprint: %w", err)
	}
	return nil
}

// RecentFingerprints implements dedup.Store.
func (pg *Postgres) RecentFingerprints(ctx context.Context, since time.Time) ([]dedup.Fingerprint, error) {
	rows, err := pg.db.QueryContext(ctx, `
		SELECT key, words, original_text, bot_id, created_at
		FROM topic_fingerprints
		WHERE created_at > $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	var fps []dedup.Fingerprint
	for rows.Next() {
		var fp dedup.Fingerprint
		var words pq.StringArray
		if err := rows.Scan(&fp.Key, &words, &fp.Original, &fp.BotID, &fp.Timestamp); err != nil {
			logger.Warn("fingerprint row scan failed", "error", err)
			continue
		}
		fp.Words = []string(words)
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// DeleteFingerprintsBefore implements dedup.Store with a bounded batch.
func (pg *Postgres) DeleteFingerprintsBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	res, err := pg.db.ExecContext(ctx, `
		DELETE FROM topic_fingerprints
		WHERE id IN (
			SELECT id FROM topic_fingerprints WHERE created_at < $1 LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fingerprints: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// LoadStates implements ratelimit.StateStore.
func (pg *Postgres) LoadStates() (map[string]ratelimit.State, error) {
	rows, err := pg.db.Query(`SELECT provider_id, limited, limited_since, reset_at, failures FROM provider_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]ratelimit.State)
	for rows.Next() {
		var id string
		var st ratelimit.State
		var since, reset sql.NullTime
		if err := rows.Scan(&id, &st.Limited, &since, &reset, &st.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan provider state: %w", err)
		}
		st.LimitedSince = since.Time
		st.ResetAt = reset.Time
		states[id] = st
	}
	return states, rows.Err()
}

// SaveState implements ratelimit.StateStore with an atomic upsert.
func (pg *Postgres) SaveState(providerID string, st ratelimit.State) error {
	_, err := pg.db.Exec(`
		INSERT INTO provider_state (provider_id, limited, limited_since, reset_at, failures)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id) DO UPDATE SET
			limited = EXCLUDED.limited,
			limited_since = EXCLUDED.limited_since,
			reset_at = EXCLUDED.reset_at,
			failures = EXCLUDED.failures
	`, providerID, st.Limited, st.LimitedSince, st.ResetAt, st.Failures)
	if err != nil {
		return fmt.Errorf("failed to save provider state: %w", err)
	}
	return nil
}

func (pg *Postgres) Close() error {
	if pg.db != nil {
		return pg.db.Close()
	}
	return nil
}
