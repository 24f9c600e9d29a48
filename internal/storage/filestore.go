package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ArticleFile is a JSON-file article store for database-less deploys and
// local runs. It honors the same natural-key no-op contract as Postgres:
// a second insert for a known source URL or normalized headline reports
// inserted=false without error.
type ArticleFile struct {
	path string

	mu          sync.Mutex
	records     []ArticleRecord
	bySourceURL map[string]int
	byHeadline  map[string]int
}

func NewArticleFile(path string) (*ArticleFile, error) {
	af := &ArticleFile{
		path:        path,
		bySourceURL: make(map[string]int),
		byHeadline:  make(map[string]int),
	}
	if err := af.load(); err != nil {
		return nil, err
	}
	return af, nil
}

func (af *ArticleFile) load() error {
	data, err := os.ReadFile(af.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read article file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &af.records); err != nil {
		return fmt.Errorf("decode article file %s: %w", af.path, err)
	}
	for i, rec := range af.records {
		af.index(rec, i)
	}
	return nil
}

func (af *ArticleFile) index(rec ArticleRecord, i int) {
	if rec.SourceURL != "" {
		af.bySourceURL[rec.SourceURL] = i
	}
	if rec.NormalizedHeadline != "" {
		af.byHeadline[rec.NormalizedHeadline] = i
	}
}

func (af *ArticleFile) flushLocked() error {
	data, err := json.MarshalIndent(af.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(af.path, data, 0o644)
}

func (af *ArticleFile) InsertArticleIfAbsent(ctx context.Context, rec ArticleRecord) (bool, error) {
	af.mu.Lock()
	defer af.mu.Unlock()

	if _, ok := af.bySourceURL[rec.SourceURL]; ok {
		return false, nil
	}
	if rec.NormalizedHeadline != "" {
		if _, ok := af.byHeadline[rec.NormalizedHeadline]; ok {
			return false, nil
		}
	}

	af.records = append(af.records, rec)
	af.index(rec, len(af.records)-1)
	if err := af.flushLocked(); err != nil {
		// Roll back so a retry is not mistaken for an earlier insert.
		af.records = af.records[:len(af.records)-1]
		delete(af.bySourceURL, rec.SourceURL)
		delete(af.byHeadline, rec.NormalizedHeadline)
		return false, fmt.Errorf("persist article file: %w", err)
	}
	return true, nil
}

// AudioURL answers the audio idempotency check by record ID.
func (af *ArticleFile) AudioURL(ctx context.Context, articleID string) (string, error) {
	af.mu.Lock()
	defer af.mu.Unlock()
	for _, rec := range af.records {
		if rec.ID == articleID {
			return rec.AudioURL, nil
		}
	}
	return "", nil
}

func (af *ArticleFile) SetAudioURL(ctx context.Context, articleID, url string) error {
	af.mu.Lock()
	defer af.mu.Unlock()
	for i := range af.records {
		if af.records[i].ID == articleID {
			af.records[i].AudioURL = url
			return af.flushLocked()
		}
	}
	return fmt.Errorf("article %s not found", articleID)
}
