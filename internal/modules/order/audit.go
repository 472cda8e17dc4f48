// README: Append-only transition audit log backed by PostgreSQL.
package order

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"waterline/internal/types"
)

type AuditLog struct {
	db *pgxpool.Pool
}

func NewAuditLog(db *pgxpool.Pool) *AuditLog {
	return &AuditLog{db: db}
}

func (l *AuditLog) Append(ctx context.Context, e *Event) error {
	_, err := l.db.Exec(ctx, `
        INSERT INTO order_events (
            order_id, from_status, to_status, actor_role, actor_uid, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorRole,
		toStringPtr(e.ActorUID),
		e.CreatedAt,
	)
	return err
}

// ListByOrder returns the transition history of one order, oldest first.
func (l *AuditLog) ListByOrder(ctx context.Context, orderID types.ID) ([]Event, error) {
	rows, err := l.db.Query(ctx, `
        SELECT id, order_id, from_status, to_status, actor_role, actor_uid, created_at
        FROM order_events
        WHERE order_id = $1
        ORDER BY id ASC`, string(orderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var actorUID *string
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.ActorRole, &actorUID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorUID != nil {
			uid := types.ID(*actorUID)
			e.ActorUID = &uid
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
