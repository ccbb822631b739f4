package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/ports"
)

const historyTable = "processed_caps"

const historySchema = `CREATE TABLE IF NOT EXISTS processed_caps (
    event_type TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    identifier TEXT NOT NULL,
    PRIMARY KEY (event_type, seq)
)`

// PostgresHistoryStore keeps ledgers in a processed_caps table, one row per identifier.
type PostgresHistoryStore struct {
	db       *sql.DB
	capacity int
	builder  sq.StatementBuilderType
}

var _ ports.HistoryStore = (*PostgresHistoryStore)(nil)

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresHistoryStore wires a sql.DB implementation.
func NewPostgresHistoryStore(db *sql.DB, capacity int) *PostgresHistoryStore {
	return &PostgresHistoryStore{
		db:       db,
		capacity: capacity,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Location describes where the ledger lives, for operator messages.
func (r *PostgresHistoryStore) Location(event domain.EventType) string {
	return fmt.Sprintf("postgres:%s/%s", historyTable, event)
}

// Ensure creates the history table if it is missing.
func (r *PostgresHistoryStore) Ensure(ctx context.Context, event domain.EventType) error {
	if _, err := r.db.ExecContext(ctx, historySchema); err != nil {
		return &domain.Error{Kind: domain.KindPersistenceWrite, Path: r.Location(event), Detail: "create schema", Err: err}
	}
	return nil
}

// Load returns identifiers in insertion order.
func (r *PostgresHistoryStore) Load(ctx context.Context, event domain.EventType) (domain.Ledger, error) {
	query, args, err := r.loadQuery(event)
	if err != nil {
		return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: r.Location(event), Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: r.Location(event), Detail: "query history", Err: err}
	}

	ledger := domain.NewLedger(r.capacity)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: r.Location(event), Detail: "scan identifier", Err: err}
		}
		ledger.Entries = append(ledger.Entries, id)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: r.Location(event), Detail: "rows iteration", Err: rowsErr}
	}
	if closeErr := rows.Close(); closeErr != nil {
		return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: r.Location(event), Detail: "close rows", Err: closeErr}
	}

	if r.capacity > 0 && len(ledger.Entries) > r.capacity {
		ledger.Entries = ledger.Entries[len(ledger.Entries)-r.capacity:]
	}
	return ledger, nil
}

// Persist replaces the event type's rows inside one transaction.
func (r *PostgresHistoryStore) Persist(ctx context.Context, event domain.EventType, ledger domain.Ledger) (err error) {
	wrap := func(detail string, cause error) error {
		return &domain.Error{Kind: domain.KindPersistenceWrite, Path: r.Location(event), Detail: detail, Err: cause}
	}

	delQuery, delArgs, err := r.deleteQuery(event)
	if err != nil {
		return wrap("build delete", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return wrap("delete history", err)
	}

	if len(ledger.Entries) > 0 {
		insQuery, insArgs, buildErr := r.insertQuery(event, ledger.Entries)
		if buildErr != nil {
			return wrap("build insert", buildErr)
		}
		if _, err = tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return wrap("insert history", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return wrap("commit", err)
	}
	return nil
}

func (r *PostgresHistoryStore) loadQuery(event domain.EventType) (string, []interface{}, error) {
	return r.builder.
		Select("identifier").
		From(historyTable).
		Where(sq.Eq{"event_type": string(event)}).
		OrderBy("seq ASC").
		ToSql()
}

func (r *PostgresHistoryStore) deleteQuery(event domain.EventType) (string, []interface{}, error) {
	return r.builder.
		Delete(historyTable).
		Where(sq.Eq{"event_type": string(event)}).
		ToSql()
}

func (r *PostgresHistoryStore) insertQuery(event domain.EventType, ids []string) (string, []interface{}, error) {
	ins := r.builder.Insert(historyTable).Columns("event_type", "seq", "identifier")
	for i, id := range ids {
		ins = ins.Values(string(event), i, id)
	}
	return ins.ToSql()
}
