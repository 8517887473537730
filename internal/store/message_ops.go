package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// AppendMessage persists one message through the write loop. The caller
// broadcasts only after this returns nil.
func (m *Manager) AppendMessage(ctx context.Context, message *types.Message) error {
	return m.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, m.dialect.insertMessage,
			message.ID,
			message.CourseID,
			message.VideoID,
			message.SenderID,
			message.Content,
			message.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
}

// RoomHistory returns every message persisted for the room, ordered
// ascending by creation time. Reads bypass the write loop. A room with no
// messages yields an empty slice; enriched deployments get sender names
// joined in from the users table.
func (m *Manager) RoomHistory(ctx context.Context, key types.RoomKey) ([]*types.Message, error) {
	query := m.dialect.historyPlain
	if m.enrich {
		query = m.dialect.historyJoined
	}

	rows, err := m.db.QueryContext(ctx, query, key.CourseID, key.VideoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query room history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]*types.Message, 0)

	for rows.Next() {
		var message types.Message

		if m.enrich {
			err = rows.Scan(
				&message.ID,
				&message.CourseID,
				&message.VideoID,
				&message.SenderID,
				&message.SenderName,
				&message.Content,
				&message.CreatedAt,
			)
		} else {
			err = rows.Scan(
				&message.ID,
				&message.CourseID,
				&message.VideoID,
				&message.SenderID,
				&message.Content,
				&message.CreatedAt,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		messages = append(messages, &message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

// UserDisplayName resolves a user's full name for message enrichment.
func (m *Manager) UserDisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := m.db.QueryRowContext(ctx, m.dialect.selectUser, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", interfaces.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user: %w", err)
	}
	return name, nil
}
