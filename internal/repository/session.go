package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-posture/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository 工作会话仓库
// 会话完成时一次性写入（不在帧处理热路径上）
type SessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository 创建工作会话仓库
func NewSessionRepository(db *sql.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// CreateWorkSession 写入完成的工作会话及其姿态区间列表
// 会话行和区间行在同一事务中写入
func (r *SessionRepository) CreateWorkSession(ctx context.Context, session *models.WorkSession, stats *models.SessionStatistics) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	if session.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal session statistics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sessionQuery := `
		INSERT INTO work_sessions (
			session_id,
			device_id,
			start_time,
			duration_ms,
			health_score,
			transition_count,
			longest_healthy_streak_ms,
			statistics,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.ExecContext(ctx, sessionQuery,
		session.SessionID,
		session.DeviceID,
		session.StartTime,
		session.Duration.Milliseconds(),
		stats.HealthScore,
		stats.TransitionCount,
		stats.LongestHealthyStreak.Milliseconds(),
		statsJSON,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert work session: %w", err)
	}

	intervalQuery := `
		INSERT INTO posture_intervals (
			interval_id,
			session_id,
			category,
			start_time,
			duration_ms
		) VALUES ($1, $2, $3, $4, $5)
	`

	for _, interval := range session.PostureIntervals {
		_, err = tx.ExecContext(ctx, intervalQuery,
			uuid.New().String(),
			session.SessionID,
			string(interval.Category),
			interval.StartTime,
			interval.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert posture interval: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Work session persisted",
		zap.String("session_id", session.SessionID),
		zap.String("device_id", session.DeviceID),
		zap.Int("interval_count", len(session.PostureIntervals)),
		zap.Float64("health_score", stats.HealthScore),
	)

	return nil
}

// GetWorkSession 根据 session_id 获取工作会话（含区间列表）
func (r *SessionRepository) GetWorkSession(ctx context.Context, sessionID string) (*models.WorkSession, *models.SessionStatistics, error) {
	if sessionID == "" {
		return nil, nil, fmt.Errorf("session_id is required")
	}

	sessionQuery := `
		SELECT
			session_id,
			device_id,
			start_time,
			duration_ms,
			statistics
		FROM work_sessions
		WHERE session_id = $1
	`

	var session models.WorkSession
	var durationMs int64
	var statsJSON []byte

	err := r.db.QueryRowContext(ctx, sessionQuery, sessionID).Scan(
		&session.SessionID,
		&session.DeviceID,
		&session.StartTime,
		&durationMs,
		&statsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("work session not found: %s", sessionID)
		}
		return nil, nil, fmt.Errorf("failed to query work session: %w", err)
	}
	session.Duration = time.Duration(durationMs) * time.Millisecond

	var stats models.SessionStatistics
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &stats); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal session statistics: %w", err)
		}
	}

	intervalQuery := `
		SELECT
			category,
			start_time,
			duration_ms
		FROM posture_intervals
		WHERE session_id = $1
		ORDER BY start_time ASC
	`

	rows, err := r.db.QueryContext(ctx, intervalQuery, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query posture intervals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var interval models.PostureInterval
		var category string
		var intervalDurationMs int64
		if err := rows.Scan(&category, &interval.StartTime, &intervalDurationMs); err != nil {
			return nil, nil, fmt.Errorf("failed to scan posture interval: %w", err)
		}
		interval.Category = models.PostureCategory(category)
		interval.Duration = time.Duration(intervalDurationMs) * time.Millisecond
		session.PostureIntervals = append(session.PostureIntervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate posture intervals: %w", err)
	}

	return &session, &stats, nil
}
