package audit

import (
	"context"

	"paycore/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Append(ctx context.Context, entry Entry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_entries (id, entity_type, entity_id, action, actor_id, request_id, at, before_json, after_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.ActorID, entry.RequestID, entry.At, nullJSON(entry.Before), nullJSON(entry.After))
	return err
}

func (s *Store) List(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, entity_type, entity_id, action, actor_id, request_id, at, before_json, after_json
    FROM audit_entries
    WHERE entity_type = $1 AND entity_id = $2
    ORDER BY seq
  `, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &e.RequestID, &e.At, &e.Before, &e.After); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
