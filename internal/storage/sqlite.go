package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"schedbot/internal/queue"
	logx "schedbot/pkg/logx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultBusyTimeout = 2 * time.Second
	defaultOpTimeout   = 5 * time.Second
)

type sqliteStore struct {
	db        *sqlx.DB
	log       logx.Logger
	opTimeout time.Duration
}

// row mirrors the queue table.
type row struct {
	ID          int64  `db:"id"`
	Message     string `db:"message"`
	SendTime    string `db:"send_time"`
	ChannelID   string `db:"channel_id"`
	ChannelName string `db:"channel_name"`
	RoleID      string `db:"role_id"`
	RoleName    string `db:"role_name"`
}

func (r row) item() queue.Item {
	return queue.Item{
		ID:          r.ID,
		Message:     r.Message,
		SendTime:    r.SendTime,
		ChannelID:   r.ChannelID,
		ChannelName: r.ChannelName,
		Mention:     queue.MentionFromColumns(r.RoleID, r.RoleName),
	}
}

func rowFrom(it queue.Item) row {
	return row{
		Message:     it.Message,
		SendTime:    it.SendTime,
		ChannelID:   it.ChannelID,
		ChannelName: it.ChannelName,
		RoleID:      it.Mention.Column(),
		RoleName:    it.Mention.Label(),
	}
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return openDB(path, cfg, log, true)
}

func openMemory(cfg Config, log logx.Logger) (Store, error) {
	return openDB(":memory:", cfg, log, false)
}

func openDB(dsn string, cfg Config, log logx.Logger, onDisk bool) (Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite prefers a single writer, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, err
	}
	if onDisk {
		applyDurability(db, log)
	}

	st := &sqliteStore{db: db, log: log, opTimeout: opTimeout}
	if err := st.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Debug("queue schema ready", logx.String("dsn", dsn))
	return st, nil
}

// applyDurability enables WAL with full fsync so a committed enqueue or
// delete survives a crash. Failures leave SQLite defaults in place and are
// logged; the store still works.
func applyDurability(db *sqlx.DB, log logx.Logger) {
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = FULL"} {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn("sqlite pragma failed", logx.String("pragma", pragma), logx.Err(err))
		}
	}
}

// migrate applies the embedded migrations. The migrator is never closed:
// Close would also close the shared *sql.DB.
func (s *sqliteStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	drv, err := sqlitemigrate.WithInstance(s.db.DB, &sqlitemigrate.Config{})
	if err != nil {
		_ = src.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		_ = src.Close()
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return src.Close()
}

func (s *sqliteStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Enqueue(ctx context.Context, it queue.Item) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO queue (message, send_time, channel_id, channel_name, role_id, role_name)
		 VALUES (:message, :send_time, :channel_id, :channel_name, :role_id, :role_name)`,
		rowFrom(it),
	)
	if err != nil {
		return 0, unavailable("enqueue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable("enqueue", err)
	}
	return id, nil
}

func (s *sqliteStore) Get(ctx context.Context, id int64) (queue.Item, bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM queue WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return queue.Item{}, false, nil
	}
	if err != nil {
		return queue.Item{}, false, unavailable("get", err)
	}
	return r.item(), true, nil
}

func (s *sqliteStore) ListPending(ctx context.Context) ([]queue.Item, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM queue ORDER BY send_time ASC, id ASC`); err != nil {
		return nil, unavailable("list pending", err)
	}
	return items(rows), nil
}

func (s *sqliteStore) ListDue(ctx context.Context, now string) ([]queue.Item, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM queue WHERE send_time <= ? ORDER BY send_time ASC, id ASC`, now); err != nil {
		return nil, unavailable("list due", err)
	}
	return items(rows), nil
}

// Delete removes id. A missing row is not an error.
func (s *sqliteStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func items(rows []row) []queue.Item {
	out := make([]queue.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.item())
	}
	return out
}
