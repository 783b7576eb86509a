package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://db/migrations/sqlite",
		"sqlite3",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("could not run database migrations: %w", err)
	}

	slog.Info("database connection and migration successful")
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	query := `INSERT INTO messages(id, domain, request_id, payload, status, created_at) VALUES(?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.Domain, msg.RequestID, msg.Payload, msg.Status, msg.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return Errors.AlreadyExists
		}
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

func (s *SQLStore) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	query := `SELECT id, domain, request_id, payload, status, created_at FROM messages WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, messageID)

	var msg Message
	err := row.Scan(&msg.ID, &msg.Domain, &msg.RequestID, &msg.Payload, &msg.Status, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, Errors.NotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting message: %w", err)
	}
	return &msg, nil
}

func (s *SQLStore) UpdateMessageStatus(ctx context.Context, messageID string, status string) error {
	query := `UPDATE messages SET status = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, status, messageID)
	return err
}

func (s *SQLStore) FetchPendingMessages(ctx context.Context, limit int) ([]Message, error) {
	query := `SELECT id, domain, request_id, payload, status, created_at FROM messages WHERE status = 'PENDING' LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error fetching pending messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Domain, &msg.RequestID, &msg.Payload, &msg.Status, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLStore) CreateInboxMessage(ctx context.Context, msg *InboxMessage) error {
	msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	query := `INSERT INTO inbox_messages(id, domain, message_id, content, created_at) VALUES(?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.Domain, msg.MessageID, msg.Content, msg.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return Errors.AlreadyExists
		}
		return fmt.Errorf("error creating inbox message: %w", err)
	}
	return nil
}

func (s *SQLStore) ListInbox(ctx context.Context, domain string, limit int) ([]InboxMessage, error) {
	query := `SELECT id, domain, message_id, content, created_at FROM inbox_messages WHERE domain = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing inbox: %w", err)
	}
	defer rows.Close()

	var messages []InboxMessage
	for rows.Next() {
		var msg InboxMessage
		if err := rows.Scan(&msg.ID, &msg.Domain, &msg.MessageID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning inbox message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLStore) RegisterToken(ctx context.Context, token *DeviceToken) error {
	token.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	query := `INSERT INTO device_tokens(id, domain, platform, token, created_at) VALUES(?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, token.ID, token.Domain, token.Platform, token.Token, token.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return Errors.AlreadyExists
		}
		return fmt.Errorf("error registering token: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteToken(ctx context.Context, tokenID string) error {
	query := `DELETE FROM device_tokens WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("error deleting token: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return Errors.NotFound
	}
	return nil
}

func (s *SQLStore) GetTokenBatchForDomain(ctx context.Context, domain string, cursor string, batchSize int) (*TokenBatch, error) {
	query := `SELECT id, domain, platform, token FROM device_tokens WHERE domain = ? AND id > ? ORDER BY id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, domain, cursor, batchSize+1)
	if err != nil {
		return nil, fmt.Errorf("error getting token batch for domain: %w", err)
	}
	defer rows.Close()

	var tokens []DeviceToken
	for rows.Next() {
		var token DeviceToken
		if err := rows.Scan(&token.ID, &token.Domain, &token.Platform, &token.Token); err != nil {
			return nil, fmt.Errorf("error scanning token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error getting token batch for domain: %w", err)
	}

	batch := &TokenBatch{
		Tokens:  tokens,
		HasMore: false,
	}
	if len(tokens) > batchSize {
		batch.HasMore = true
		batch.Tokens = tokens[:batchSize]
		batch.NextCursor = tokens[batchSize-1].ID
	}
	return batch, nil
}

func (s *SQLStore) BulkInsertReceipts(ctx context.Context, receipts []DeliveryReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO delivery_receipts(id, message_id, token_id, status, status_reason, dispatched_at) VALUES(?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range receipts {
		_, err := stmt.ExecContext(ctx, r.ID, r.MessageID, r.TokenID, r.Status, r.StatusReason, r.DispatchedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
