package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mandalnilabja/chatrelay/internal/storage/models"
)

// LogRequest stores a request log entry
func (s *Storage) LogRequest(ctx context.Context, log *models.RequestLog) error {
	if log == nil {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}

	if log.ID == "" {
		log.ID = generateID("log")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO request_logs (id, request_id, model, outcome, status_code,
			is_streaming, prompt_tokens, completion_tokens, total_tokens,
			tokens_estimated, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.RequestID, log.Model, log.Outcome, log.StatusCode,
		boolToInt(log.IsStreaming), log.PromptTokens, log.CompletionTokens, log.TotalTokens,
		boolToInt(log.TokensEstimated), log.ErrorMessage, log.DurationMs, log.CreatedAt.UTC())

	return err
}

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Storage) GetRequestLogs(ctx context.Context, filter models.LogFilter) ([]*models.RequestLog, error) {
	if filter.Limit < 0 {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStorageClosed
	}

	query := `SELECT id, request_id, model, outcome, status_code, is_streaming,
		prompt_tokens, completion_tokens, total_tokens, tokens_estimated,
		COALESCE(error_message, ''), duration_ms, created_at
		FROM request_logs WHERE 1=1`

	var args []interface{}

	if filter.Model != "" {
		query += " AND model = ?"
		args = append(args, filter.Model)
	}
	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, filter.Outcome)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var log models.RequestLog
		var isStreaming, estimated int

		err := rows.Scan(&log.ID, &log.RequestID, &log.Model, &log.Outcome, &log.StatusCode,
			&isStreaming, &log.PromptTokens, &log.CompletionTokens, &log.TotalTokens,
			&estimated, &log.ErrorMessage, &log.DurationMs, &log.CreatedAt)
		if err != nil {
			return nil, err
		}

		log.IsStreaming = isStreaming == 1
		log.TokensEstimated = estimated == 1
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// DeleteRequestLogs removes logs created before olderThan
func (s *Storage) DeleteRequestLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStorageClosed
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM request_logs WHERE created_at < ?", olderThan.UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
