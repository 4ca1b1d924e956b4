package store

import (
	"context"

	"github.com/google/uuid"
)

// AuditStore records who did what inside the same transaction as the change
// itself, so an audit row exists iff the mutation committed.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

type AuditEntry struct {
	ID         string `db:"id"`
	ActorID    string `db:"actor_id"`
	Action     string `db:"action"`
	EntityType string `db:"entity_type"`
	EntityID   string `db:"entity_id"`
	Data       string `db:"data"`
	CreatedAt  any    `db:"created_at"`
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID, data string) error {
	query := `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, uuid.NewString(), actorID, action, entityType, entityID, data)
	return err
}

func (s *AuditStore) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]AuditEntry, error) {
	var rows []AuditEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_id, action, entity_type, entity_id, data, created_at
		FROM audit_log
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, actorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
