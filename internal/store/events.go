package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/examhall/internal/model"
)

// InsertEvent appends a notification event. Call it inside the transaction
// that makes the state change so the event is never observed without it.
func (q *Queries) InsertEvent(ctx context.Context, e model.Event, payload any) (int64, error) {
	body := "{}"
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("encode event payload: %w", err)
		}
		body = string(b)
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (kind, exam_id, user_id, ref_id, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Kind, e.ExamID, e.UserID, e.RefID, body, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListEvents returns up to limit events with ID greater than afterID, oldest first.
func (q *Queries) ListEvents(ctx context.Context, afterID int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, kind, exam_id, user_id, ref_id, payload, created_at
		 FROM events WHERE id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.ExamID, &e.UserID, &e.RefID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
