package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://db/migrations/postgres",
		"postgres",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("could not run database migrations: %w", err)
	}

	slog.Info("database connection and migration successful")
	return &PostgresStore{db: db}, nil
}

// Message operations

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	query := `INSERT INTO messages(id, domain, request_id, payload, status, created_at) VALUES($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.Domain, msg.RequestID, msg.Payload, msg.Status, msg.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return Errors.AlreadyExists
		}
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	query := `SELECT id, domain, request_id, payload, status, created_at FROM messages WHERE id = $1`
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

func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, messageID string, status string) error {
	query := `UPDATE messages SET status = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, status, messageID)
	return err
}

func (s *PostgresStore) FetchPendingMessages(ctx context.Context, limit int) ([]Message, error) {
	query := `SELECT id, domain, request_id, payload, status, created_at FROM messages WHERE status = 'PENDING' LIMIT $1`
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

// Inbox operations

func (s *PostgresStore) CreateInboxMessage(ctx context.Context, msg *InboxMessage) error {
	msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	query := `INSERT INTO inbox_messages(id, domain, message_id, content, created_at) VALUES($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.Domain, msg.MessageID, msg.Content, msg.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return Errors.AlreadyExists
		}
		return fmt.Errorf("error creating inbox message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInbox(ctx context.Context, domain string, limit int) ([]InboxMessage, error) {
	query := `SELECT id, domain, message_id, content, created_at FROM inbox_messages WHERE domain = $1 ORDER BY created_at DESC LIMIT $2`
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

// Token operations

func (s *PostgresStore) RegisterToken(ctx context.Context, token *DeviceToken) error {
	token.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	query := `INSERT INTO device_tokens(id, domain, platform, token, created_at) VALUES($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, token.ID, token.Domain, token.Platform, token.Token, token.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return Errors.AlreadyExists
		}
		return fmt.Errorf("error registering token: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteToken(ctx context.Context, tokenID string) error {
	query := `DELETE FROM device_tokens WHERE id = $1`
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

func (s *PostgresStore) GetTokenBatchForDomain(ctx context.Context, domain string, cursor string, batchSize int) (*TokenBatch, error) {
	query := `SELECT id, domain, platform, token FROM device_tokens WHERE domain = $1 AND id > $2 ORDER BY id LIMIT $3`
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

// Delivery receipt operations

func (s *PostgresStore) BulkInsertReceipts(ctx context.Context, receipts []DeliveryReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO delivery_receipts(id, message_id, token_id, status, status_reason, dispatched_at) VALUES($1, $2, $3, $4, $5, $6)`
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
