package home

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Record is the persisted form of an entity.
type Record struct {
	Type       script.ViewType
	ID         uint32
	Name       string
	RoomID     uint32 // devices only
	SourceID   uint32
	Properties json.RawMessage // Store properties as a JSON object
}

// Repository persists entities.
type Repository interface {
	// List returns the entities of type t ordered by id.
	List(ctx context.Context, t script.ViewType) ([]Record, error)

	// Create persists a new entity and returns its assigned id.
	Create(ctx context.Context, rec Record) (uint32, error)

	// Update replaces the name, room, source and properties of an entity.
	// Returns ErrEntityNotFound if it does not exist.
	Update(ctx context.Context, rec Record) error

	// Delete removes an entity.
	// Returns ErrEntityNotFound if it does not exist.
	Delete(ctx context.Context, t script.ViewType, id uint32) error
}

// tableFor maps a domain type to its table.
func tableFor(t script.ViewType) (string, error) {
	switch t {
	case script.ViewRoom:
		return "rooms", nil
	case script.ViewDevice:
		return "devices", nil
	case script.ViewService:
		return "services", nil
	default:
		return "", ErrInvalidType
	}
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed entity repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns the entities of type t ordered by id.
func (r *SQLiteRepository) List(ctx context.Context, t script.ViewType) ([]Record, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	roomColumn := "NULL"
	if t == script.ViewDevice {
		roomColumn = "room_id"
	}

	//nolint:gosec // table and column names come from fixed constants
	query := fmt.Sprintf(`SELECT id, name, %s, script_source_id, properties FROM %s ORDER BY id`, roomColumn, table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      = Record{Type: t}
			roomID   sql.NullInt64
			sourceID sql.NullInt64
			props    string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &roomID, &sourceID, &props); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec.RoomID = fromNullID(roomID)
		rec.SourceID = fromNullID(sourceID)
		rec.Properties = json.RawMessage(props)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return records, nil
}

// Create persists a new entity and returns its assigned id.
func (r *SQLiteRepository) Create(ctx context.Context, rec Record) (uint32, error) {
	table, err := tableFor(rec.Type)
	if err != nil {
		return 0, err
	}

	var result sql.Result
	if rec.Type == script.ViewDevice {
		result, err = r.db.ExecContext(ctx, `
			INSERT INTO devices (name, room_id, script_source_id, properties)
			VALUES (?, ?, ?, ?)`,
			rec.Name, nullID(rec.RoomID), nullID(rec.SourceID), propertiesText(rec.Properties),
		)
	} else {
		//nolint:gosec // table name comes from a fixed constant
		query := fmt.Sprintf(`INSERT INTO %s (name, script_source_id, properties) VALUES (?, ?, ?)`, table)
		result, err = r.db.ExecContext(ctx, query,
			rec.Name, nullID(rec.SourceID), propertiesText(rec.Properties),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading %s id: %w", table, err)
	}
	return uint32(id), nil //nolint:gosec // ids come from an INTEGER PRIMARY KEY starting at 1
}

// Update replaces the stored fields of an entity.
func (r *SQLiteRepository) Update(ctx context.Context, rec Record) error {
	table, err := tableFor(rec.Type)
	if err != nil {
		return err
	}

	var result sql.Result
	if rec.Type == script.ViewDevice {
		result, err = r.db.ExecContext(ctx, `
			UPDATE devices
			SET name = ?, room_id = ?, script_source_id = ?, properties = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			rec.Name, nullID(rec.RoomID), nullID(rec.SourceID), propertiesText(rec.Properties), rec.ID,
		)
	} else {
		//nolint:gosec // table name comes from a fixed constant
		query := fmt.Sprintf(`
			UPDATE %s
			SET name = ?, script_source_id = ?, properties = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, table)
		result, err = r.db.ExecContext(ctx, query,
			rec.Name, nullID(rec.SourceID), propertiesText(rec.Properties), rec.ID,
		)
	}
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", table, rec.ID, err)
	}
	return requireAffected(result)
}

// Delete removes an entity.
func (r *SQLiteRepository) Delete(ctx context.Context, t script.ViewType, id uint32) error {
	table, err := tableFor(t)
	if err != nil {
		return err
	}
	//nolint:gosec // table name comes from a fixed constant
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// nullID stores 0 as NULL.
func nullID(id uint32) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

func fromNullID(v sql.NullInt64) uint32 {
	if !v.Valid || v.Int64 <= 0 {
		return 0
	}
	return uint32(v.Int64) //nolint:gosec // ids come from INTEGER PRIMARY KEY columns
}

func propertiesText(props json.RawMessage) string {
	if len(props) == 0 {
		return "{}"
	}
	return string(props)
}

// MemoryRepository is an in-memory Repository for tests and database-less
// runs.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[script.ViewType]map[uint32]Record
	nextID  map[script.ViewType]uint32
}

// NewMemoryRepository returns a repository seeded with records.
func NewMemoryRepository(records ...Record) *MemoryRepository {
	r := &MemoryRepository{
		records: make(map[script.ViewType]map[uint32]Record),
		nextID:  make(map[script.ViewType]uint32),
	}
	for _, t := range Types {
		r.records[t] = make(map[uint32]Record)
	}
	for _, rec := range records {
		if _, ok := r.records[rec.Type]; !ok {
			continue
		}
		r.records[rec.Type][rec.ID] = rec
		if rec.ID > r.nextID[rec.Type] {
			r.nextID[rec.Type] = rec.ID
		}
	}
	return r
}

// List returns the entities of type t ordered by id.
func (r *MemoryRepository) List(_ context.Context, t script.ViewType) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.records[t]
	if !ok {
		return nil, ErrInvalidType
	}
	list := make([]Record, 0, len(byID))
	for _, rec := range byID {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Create stores rec under the next free id.
func (r *MemoryRepository) Create(_ context.Context, rec Record) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.records[rec.Type]
	if !ok {
		return 0, ErrInvalidType
	}
	r.nextID[rec.Type]++
	rec.ID = r.nextID[rec.Type]
	byID[rec.ID] = rec
	return rec.ID, nil
}

// Update replaces a stored record.
func (r *MemoryRepository) Update(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.records[rec.Type]
	if !ok {
		return ErrInvalidType
	}
	if _, exists := byID[rec.ID]; !exists {
		return ErrEntityNotFound
	}
	byID[rec.ID] = rec
	return nil
}

// Delete removes a stored record.
func (r *MemoryRepository) Delete(_ context.Context, t script.ViewType, id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.records[t]
	if !ok {
		return ErrInvalidType
	}
	if _, exists := byID[id]; !exists {
		return ErrEntityNotFound
	}
	delete(byID, id)
	return nil
}

// Get returns a stored record.
func (r *MemoryRepository) Get(t script.ViewType, id uint32) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[t][id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s %d", ErrEntityNotFound, t, id)
	}
	return rec, nil
}
