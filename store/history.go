package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/generator"
)

// DefaultPageSize is used by ListPosts when no limit is given.
const DefaultPageSize = 50

// Post is one generated candidate kept in the history.
type Post struct {
	ID           int64              `json:"id"`
	GenerationID string             `json:"generation_id"`
	Topic        string             `json:"topic"`
	Tone         generator.Tone     `json:"tone"`
	Length       generator.Length   `json:"length"`
	PostType     generator.PostType `json:"post_type"`
	Body         string             `json:"body"`
	Hashtags     []string           `json:"hashtags"`
	Score        int                `json:"engagement_score"`
	Favorite     bool               `json:"favorite"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Statistics summarizes usage, history and drafts.
type Statistics struct {
	TotalGenerations int64            `json:"total_generations"`
	TotalPosts       int64            `json:"total_posts"`
	TotalDrafts      int64            `json:"total_drafts"`
	FavoritePosts    int64            `json:"favorite_posts"`
	MostUsedTone     string           `json:"most_used_tone"`
	MostUsedLength   string           `json:"most_used_length"`
	PostsByTone      map[string]int64 `json:"posts_by_tone"`
	PostsLast7Days   int64            `json:"posts_last_7_days"`
}

const postColumns = `id, generation_id, topic, tone, length, post_type, body, hashtags, score, is_favorite, created_at`

// RecordGeneration stores every candidate of result in the history. Replays
// of the same result are ignored.
func (s *Store) RecordGeneration(ctx context.Context, result generator.GenerationResult) error {
	if result.ID == "" {
		return apperr.New(apperr.CodeInvalidInput, "generation id is required")
	}
	req := result.Request
	created := result.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return s.withWriteTx(ctx, "record generation", func(tx *sql.Tx) error {
		var seen int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE generation_id = ?`, result.ID).Scan(&seen)
		if err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}
		for _, c := range result.Candidates {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO posts (generation_id, topic, tone, length, post_type, body, hashtags, score, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				result.ID, req.Topic(), string(req.Tone()), string(req.Length()), string(req.PostType()),
				c.Body, joinHashtags(c.Hashtags), c.Score, formatTime(created))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListPosts pages through the history, newest first.
func (s *Store) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.queryPosts(ctx, "list posts",
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
}

// Favorites returns favorite posts, newest first.
func (s *Store) Favorites(ctx context.Context) ([]Post, error) {
	return s.queryPosts(ctx, "list favorites",
		`SELECT `+postColumns+` FROM posts WHERE is_favorite = 1 ORDER BY created_at DESC, id DESC`)
}

// GetPost returns history post id.
func (s *Store) GetPost(ctx context.Context, id int64) (Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, apperr.Newf(apperr.CodeNotFound, "post %d not found", id)
	}
	if err != nil {
		return Post{}, storageError("get post", err)
	}
	return p, nil
}

// ToggleFavorite flips the favorite flag of post id and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	var favorite bool
	err := s.withWriteTx(ctx, "toggle favorite", func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT is_favorite FROM posts WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Newf(apperr.CodeNotFound, "post %d not found", id)
		}
		if err != nil {
			return err
		}
		favorite = current == 0
		_, err = tx.ExecContext(ctx, `UPDATE posts SET is_favorite = ? WHERE id = ?`, boolToInt(favorite), id)
		return err
	})
	return favorite, err
}

// DeletePost removes post id from the history.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, "delete post", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Newf(apperr.CodeNotFound, "post %d not found", id)
		}
		return nil
	})
}

// Statistics aggregates the history, the drafts and the usage counters.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{
		TotalGenerations: s.Usage().Total,
		PostsByTone:      map[string]int64{},
	}

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalPosts, `SELECT COUNT(*) FROM posts`, nil},
		{&stats.TotalDrafts, `SELECT COUNT(*) FROM drafts`, nil},
		{&stats.FavoritePosts, `SELECT COUNT(*) FROM posts WHERE is_favorite = 1`, nil},
		{&stats.PostsLast7Days, `SELECT COUNT(*) FROM posts WHERE created_at >= ?`,
			[]any{formatTime(time.Now().Add(-7 * 24 * time.Hour))}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return Statistics{}, storageError("statistics", err)
		}
	}

	var err error
	if stats.MostUsedTone, err = s.mostUsed(ctx, "tone"); err != nil {
		return Statistics{}, err
	}
	if stats.MostUsedLength, err = s.mostUsed(ctx, "length"); err != nil {
		return Statistics{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT tone, COUNT(*) FROM posts GROUP BY tone`)
	if err != nil {
		return Statistics{}, storageError("statistics", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tone  string
			count int64
		)
		if err := rows.Scan(&tone, &count); err != nil {
			return Statistics{}, storageError("statistics", err)
		}
		stats.PostsByTone[tone] = count
	}
	if err := rows.Err(); err != nil {
		return Statistics{}, storageError("statistics", err)
	}
	return stats, nil
}

// mostUsed returns the most frequent value of column in the history, or ""
// when it is empty. Ties go to the alphabetically first value.
func (s *Store) mostUsed(ctx context.Context, column string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT `+column+` FROM posts GROUP BY `+column+` ORDER BY COUNT(*) DESC, `+column+` ASC LIMIT 1`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageError("statistics", err)
	}
	return value, nil
}

func (s *Store) queryPosts(ctx context.Context, op, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, storageError(op, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, err)
	}
	return posts, nil
}

func scanPost(sc scanner) (Post, error) {
	var (
		p                                  Post
		tone, size, postType, hashtags, at string
		favorite                           int
	)
	err := sc.Scan(&p.ID, &p.GenerationID, &p.Topic, &tone, &size, &postType, &p.Body, &hashtags, &p.Score, &favorite, &at)
	if err != nil {
		return Post{}, err
	}
	created, err := parseTime(at)
	if err != nil {
		return Post{}, err
	}
	p.Tone = generator.Tone(tone)
	p.Length = generator.Length(size)
	p.PostType = generator.PostType(postType)
	p.Hashtags = splitHashtags(hashtags)
	p.Favorite = favorite != 0
	p.CreatedAt = created
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
