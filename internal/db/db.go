package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"document-assistant/internal/config"
	"document-assistant/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Turn is one answered question, stored after the answer was returned.
type Turn struct {
	bun.BaseModel `bun:"table:turns,alias:t"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     string    `bun:"session_id,notnull"`
	Mode          string    `bun:"mode,notnull"`
	TurnIndex     int       `bun:"turn_index,notnull"`
	Question      string    `bun:"question,notnull"`
	Answer        string    `bun:"answer,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Feedback is a thumbs up or down on an assistant turn.
type Feedback struct {
	bun.BaseModel `bun:"table:feedback,alias:f"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     string    `bun:"session_id,notnull"`
	TurnIndex     int       `bun:"turn_index,notnull"`
	Helpful       bool      `bun:"helpful,notnull"`
	Comment       string    `bun:"comment"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver. No connection is
// made until the first query.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.DriverPGDriver, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	case config.DriverPQ:
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*Turn)(nil), (*Feedback)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Recorder persists conversation activity outside the in-memory session.
type Recorder interface {
	RecordTurn(ctx context.Context, sessionID string, mode models.Mode, resp models.PromptResponse) error
	RecordFeedback(ctx context.Context, sessionID string, fb models.Feedback) error
	Close() error
}

type BunRecorder struct {
	db *bun.DB
}

func NewBunRecorder(db *bun.DB) *BunRecorder {
	return &BunRecorder{db: db}
}

// Open connects, creates the tables and returns a ready recorder.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*BunRecorder, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	bdb := NewDB(sqldb, cfg.Debug)
	if err := InitDB(ctx, bdb); err != nil {
		bdb.Close()
		return nil, err
	}
	return NewBunRecorder(bdb), nil
}

func (r *BunRecorder) RecordTurn(ctx context.Context, sessionID string, mode models.Mode, resp models.PromptResponse) error {
	_, err := r.db.NewInsert().Model(newTurn(sessionID, mode, resp)).Exec(ctx)
	return err
}

func (r *BunRecorder) RecordFeedback(ctx context.Context, sessionID string, fb models.Feedback) error {
	_, err := r.db.NewInsert().Model(newFeedback(sessionID, fb)).Exec(ctx)
	return err
}

func (r *BunRecorder) Close() error {
	return r.db.Close()
}

func newTurn(sessionID string, mode models.Mode, resp models.PromptResponse) *Turn {
	return &Turn{
		SessionID: sessionID,
		Mode:      string(mode),
		TurnIndex: resp.TurnIndex,
		Question:  resp.Query,
		Answer:    resp.Answer,
		CreatedAt: time.Now(),
	}
}

func newFeedback(sessionID string, fb models.Feedback) *Feedback {
	created := fb.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	return &Feedback{
		SessionID: sessionID,
		TurnIndex: fb.TurnIndex,
		Helpful:   fb.Helpful,
		Comment:   fb.Comment,
		CreatedAt: created,
	}
}

// NopRecorder is used when the database is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordTurn(context.Context, string, models.Mode, models.PromptResponse) error {
	return nil
}

func (NopRecorder) RecordFeedback(context.Context, string, models.Feedback) error { return nil }

func (NopRecorder) Close() error { return nil }
