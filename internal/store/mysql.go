package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"sales-insights-go/internal/config"
	"sales-insights-go/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MySQL implements Store on top of a MySQL connection pool.
type MySQL struct {
	db  *sql.DB
	log *logger.Logger
}

// Open connects, tunes the pool and verifies the connection.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*MySQL, error) {
	db, err := sql.Open("mysql", cfg.DSN()+"&multiStatements=true")
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return &MySQL{db: db, log: log}, nil
}

// Migrate applies the embedded schema migrations. Safe to run on every
// startup; an up-to-date schema is not an error.
func (m *MySQL) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := migratemysql.WithInstance(m.db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("open migration driver: %w", err)
	}
	mg, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if m.log != nil {
		m.log.WithComponent("store").Info("schema migrations applied")
	}
	return nil
}

func (m *MySQL) Insert(ctx context.Context, rec *AnalysisRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	analysisJSON, err := json.Marshal(rec.Analysis)
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	const q = `INSERT INTO call_analyses
		(id, user_id, title, call_type, total_score, content_hash, tokens_used, transcript_chars, analysis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = m.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.Title, rec.CallType, rec.TotalScore,
		rec.ContentHash, rec.TokensUsed, rec.TranscriptChars, analysisJSON)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return rec.ID, nil
}

func (m *MySQL) FindByHash(ctx context.Context, userID, contentHash string) (*AnalysisRecord, error) {
	const q = `SELECT id, user_id, title, call_type, total_score, content_hash,
		tokens_used, transcript_chars, analysis, created_at
		FROM call_analyses
		WHERE user_id = ? AND content_hash = ?
		ORDER BY created_at DESC LIMIT 1`
	rec, err := scanRecord(m.db.QueryRowContext(ctx, q, userID, contentHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis by hash: %w", err)
	}
	return rec, nil
}

func (m *MySQL) ListByUser(ctx context.Context, userID string) ([]AnalysisRecord, error) {
	const q = `SELECT id, user_id, title, call_type, total_score, content_hash,
		tokens_used, transcript_chars, analysis, created_at
		FROM call_analyses
		WHERE user_id = ?
		ORDER BY created_at DESC`
	rows, err := m.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var analysisJSON []byte
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.CallType, &rec.TotalScore,
		&rec.ContentHash, &rec.TokensUsed, &rec.TranscriptChars, &analysisJSON, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(analysisJSON, &rec.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &rec, nil
}
