// Package store implements the persistent local store: a durable, versioned
// set of named collections backed by SQLite. Each collection is a table of
// auto-increment keyed rows holding one JSON-encoded record. The schema is
// versioned with goose migrations; upgrades only ever add collections.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/wesigned/wesigned/internal/common"
	"github.com/wesigned/wesigned/internal/dbx"
)

// Collection names. Operations against any other name fail with
// common.ErrUnknownCollection.
const (
	CollectionStudentAttendances = "studentAttendances"
	CollectionUser               = "user"
	CollectionLecturerView       = "lecturerView"
	CollectionPending            = "pending"
	CollectionSignIns            = "signins"
	CollectionSessions           = "sessions"
)

// collections maps declared collection names to their table names. The two
// coincide; the map doubles as the declared-schema check so collection names
// are never interpolated into SQL unvalidated.
var collections = map[string]string{
	CollectionStudentAttendances: CollectionStudentAttendances,
	CollectionUser:               CollectionUser,
	CollectionLecturerView:       CollectionLecturerView,
	CollectionPending:            CollectionPending,
	CollectionSignIns:            CollectionSignIns,
	CollectionSessions:           CollectionSessions,
}

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Record is the generic envelope every collection stores: an auto-assigned
// key plus the JSON-encoded collection-specific fields.
type Record struct {
	ID   int64
	Data json.RawMessage
}

// Decode unmarshals the record body into v.
func (r *Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// ops carries the operations shared by Store (plain handle) and Tx
// (transactional handle).
type ops struct {
	db dbx.DBTX
}

// Store is a handle to the local database. Safe for concurrent use; each
// individual operation is atomic. Multi-operation sequences that must be
// atomic go through InTx.
type Store struct {
	ops
	sqldb *sql.DB
}

// Tx is a transactional view of the store, valid only inside InTx.
type Tx struct {
	ops
}

// Open opens (creating if necessary) the database at dsn and brings the
// schema up to the current version. It is idempotent: reopening an
// up-to-date database is a no-op apart from the version check. Migrations
// run transactionally and only add collections, never drop or rename
// existing ones. Returns common.ErrStorageUnavailable when the host cannot
// provide a working database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	return &Store{ops: ops{db: db}, sqldb: db}, nil
}

// RunMigrations applies all embedded schema migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, "migrations")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.sqldb.Close()
}

// InTx runs fn inside a single transaction. The transactional view exposes
// the same operations as the store itself.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return dbx.WithTx(ctx, s.sqldb, nil, func(ctx context.Context, db dbx.DBTX) error {
		return fn(ctx, Tx{ops: ops{db: db}})
	})
}

func tableFor(collection string) (string, error) {
	table, ok := collections[collection]
	if !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownCollection, collection)
	}
	return table, nil
}

// Put inserts v into the collection when id is zero and updates the record
// in place otherwise. Returns the record's key. Values that cannot be
// JSON-encoded fail with common.ErrInvalidRecord.
func (o ops) Put(ctx context.Context, collection string, id int64, v any) (int64, error) {
	table, err := tableFor(collection)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}

	if id == 0 {
		res, err := o.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (data) VALUES (?)`, table), string(data))
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", collection, err)
		}
		return res.LastInsertId()
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, table)
	if _, err := o.db.ExecContext(ctx, query, id, string(data)); err != nil {
		return 0, fmt.Errorf("failed to upsert into %s: %w", collection, err)
	}
	return id, nil
}

// GetAll returns every record in the collection in insertion order, or an
// empty slice when there are none.
func (o ops) GetAll(ctx context.Context, collection string) ([]Record, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	rows, err := o.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, data FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", collection, err)
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		var item Record
		var data string
		if err := rows.Scan(&item.ID, &data); err != nil {
			return nil, err
		}
		item.Data = json.RawMessage(data)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByKey returns the record with the given key or common.ErrNotFound.
func (o ops) GetByKey(ctx context.Context, collection string, id int64) (*Record, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	var data string
	row := o.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, table), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s[%d]", common.ErrNotFound, collection, id)
		}
		return nil, fmt.Errorf("failed to get %s[%d]: %w", collection, id, err)
	}
	return &Record{ID: id, Data: json.RawMessage(data)}, nil
}

// Delete removes the record with the given key. Deleting an absent key is
// not an error.
func (o ops) Delete(ctx context.Context, collection string, id int64) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	if _, err := o.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id); err != nil {
		return fmt.Errorf("failed to delete %s[%d]: %w", collection, id, err)
	}
	return nil
}

// Clear removes every record from the collection. Auto-increment keys are
// not reset, so keys of deleted records are never reused.
func (o ops) Clear(ctx context.Context, collection string) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	if _, err := o.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}
