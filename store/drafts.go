package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/generator"
	"linkedin_post_generator/metrics"
)

// Draft is a candidate the user chose to keep.
type Draft struct {
	ID        int64            `json:"id"`
	Body      string           `json:"body"`
	Hashtags  []string         `json:"hashtags"`
	Tone      generator.Tone   `json:"tone"`
	Length    generator.Length `json:"length"`
	Score     int              `json:"engagement_score"`
	CreatedAt time.Time        `json:"created_at"`
}

// SaveDraft stores c and returns the new draft ID. Every hashtag must be a
// single #token; the stored list is space-delimited.
func (s *Store) SaveDraft(ctx context.Context, c generator.PostCandidate, tone generator.Tone, length generator.Length) (int64, error) {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return 0, apperr.New(apperr.CodeInvalidInput, "draft body cannot be empty")
	}
	tags, err := generator.CheckHashtags(c.Hashtags)
	if err != nil {
		return 0, err
	}
	score := min(max(c.Score, generator.MinScore), generator.MaxScore)

	var id int64
	err = s.withWriteTx(ctx, "save draft", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO drafts (body, hashtags, tone, length, score, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			body, joinHashtags(tags), string(tone), string(length), score, formatTime(time.Now()))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.DraftsSavedTotal.Inc()
	s.log.Debug("draft saved", zap.Int64("draft_id", id))
	return id, nil
}

// ListDrafts returns all drafts, newest first.
func (s *Store) ListDrafts(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body, hashtags, tone, length, score, created_at FROM drafts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageError("list drafts", err)
	}
	defer rows.Close()

	drafts := []Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, storageError("list drafts", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list drafts", err)
	}
	return drafts, nil
}

// GetDraft returns draft id.
func (s *Store) GetDraft(ctx context.Context, id int64) (Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, body, hashtags, tone, length, score, created_at FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, apperr.Newf(apperr.CodeNotFound, "draft %d not found", id)
	}
	if err != nil {
		return Draft{}, storageError("get draft", err)
	}
	return d, nil
}

// DeleteDraft removes draft id. A missing draft is reported as not_found
// and leaves the store unchanged.
func (s *Store) DeleteDraft(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, "delete draft", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Newf(apperr.CodeNotFound, "draft %d not found", id)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(sc scanner) (Draft, error) {
	var (
		d                    Draft
		hashtags, tone, size string
		createdAt            string
	)
	if err := sc.Scan(&d.ID, &d.Body, &hashtags, &tone, &size, &d.Score, &createdAt); err != nil {
		return Draft{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Draft{}, err
	}
	d.Hashtags = splitHashtags(hashtags)
	d.Tone = generator.Tone(tone)
	d.Length = generator.Length(size)
	d.CreatedAt = t
	return d, nil
}
