package store

import (
	"context"
	"database/sql"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/generator"
)

// UsageStats counts successful generations.
type UsageStats struct {
	Total  int64                    `json:"total"`
	ByTone map[generator.Tone]int64 `json:"by_tone"`
}

func (u UsageStats) clone() UsageStats {
	out := UsageStats{Total: u.Total, ByTone: make(map[generator.Tone]int64, len(u.ByTone))}
	maps.Copy(out.ByTone, u.ByTone)
	return out
}

// IncrementUsage counts one successful generation. eventID identifies the
// generation; replaying the same eventID is a no-op.
func (s *Store) IncrementUsage(ctx context.Context, eventID string, tone generator.Tone) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return apperr.New(apperr.CodeInvalidInput, "usage event id is required")
	}

	applied := false
	err := s.withWriteTx(ctx, "increment usage", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO usage_events (id, tone, at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			eventID, string(tone), formatTime(time.Now()))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		for _, key := range []string{usageTotalKey, string(tone)} {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO usage_counters (key, count) VALUES (?, 1)
				 ON CONFLICT(key) DO UPDATE SET count = count + 1`, key)
			if err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		s.log.Debug("usage event already counted", zap.String("event_id", eventID))
		return nil
	}

	// increments commute, so the mirror may be bumped after the commit
	s.usageMu.Lock()
	s.usage.Total++
	s.usage.ByTone[tone]++
	s.usageMu.Unlock()
	return nil
}

// Usage returns a snapshot of the usage counters.
func (s *Store) Usage() UsageStats {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	return s.usage.clone()
}

func (s *Store) loadUsage(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, count FROM usage_counters`)
	if err != nil {
		return storageError("load usage", err)
	}
	defer rows.Close()

	usage := UsageStats{ByTone: map[generator.Tone]int64{}}
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return storageError("load usage", err)
		}
		if key == usageTotalKey {
			usage.Total = count
			continue
		}
		usage.ByTone[generator.Tone(key)] = count
	}
	if err := rows.Err(); err != nil {
		return storageError("load usage", err)
	}

	s.usageMu.Lock()
	s.usage = usage
	s.usageMu.Unlock()
	return nil
}
