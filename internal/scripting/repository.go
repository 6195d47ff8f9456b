package scripting

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// SourceRecord is the persisted identity of a script source.
type SourceRecord struct {
	ID       uint32
	Provider string
	Name     string
	Content  string
}

// SourceRepository persists script source identities so ids stay stable
// across restarts.
type SourceRepository interface {
	// List returns every persisted source ordered by id.
	List(ctx context.Context) ([]SourceRecord, error)

	// Create persists a new source and returns its assigned id.
	Create(ctx context.Context, provider, name, content string) (uint32, error)

	// UpdateContent replaces the content of a persisted source.
	// Returns ErrSourceNotFound if the id does not exist.
	UpdateContent(ctx context.Context, id uint32, content string) error

	// Delete removes a persisted source.
	// Returns ErrSourceNotFound if the id does not exist.
	Delete(ctx context.Context, id uint32) error
}

// SQLiteSourceRepository implements SourceRepository using SQLite.
type SQLiteSourceRepository struct {
	db *sql.DB
}

// NewSQLiteSourceRepository creates a new SQLite-backed source repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteSourceRepository(db *sql.DB) *SQLiteSourceRepository {
	return &SQLiteSourceRepository{db: db}
}

// List returns every persisted source ordered by id.
func (r *SQLiteSourceRepository) List(ctx context.Context) ([]SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider, name, content
		FROM script_sources
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying script sources: %w", err)
	}
	defer rows.Close()

	var records []SourceRecord
	for rows.Next() {
		var rec SourceRecord
		if err := rows.Scan(&rec.ID, &rec.Provider, &rec.Name, &rec.Content); err != nil {
			return nil, fmt.Errorf("scanning script source: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating script sources: %w", err)
	}
	return records, nil
}

// Create persists a new source and returns its assigned id.
func (r *SQLiteSourceRepository) Create(ctx context.Context, provider, name, content string) (uint32, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO script_sources (provider, name, content)
		VALUES (?, ?, ?)`,
		provider, name, content,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting script source: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading script source id: %w", err)
	}
	return uint32(id), nil //nolint:gosec // ids come from an INTEGER PRIMARY KEY starting at 1
}

// UpdateContent replaces the content of a persisted source.
func (r *SQLiteSourceRepository) UpdateContent(ctx context.Context, id uint32, content string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE script_sources SET content = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		content, id,
	)
	if err != nil {
		return fmt.Errorf("updating script source: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a persisted source.
func (r *SQLiteSourceRepository) Delete(ctx context.Context, id uint32) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM script_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting script source: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// MemorySourceRepository is an in-memory SourceRepository for tests and
// database-less runs.
type MemorySourceRepository struct {
	mu      sync.Mutex
	records []SourceRecord
	nextID  uint32
}

// NewMemorySourceRepository returns an empty in-memory repository.
func NewMemorySourceRepository(records ...SourceRecord) *MemorySourceRepository {
	repo := &MemorySourceRepository{nextID: 1}
	for _, rec := range records {
		repo.records = append(repo.records, rec)
		if rec.ID >= repo.nextID {
			repo.nextID = rec.ID + 1
		}
	}
	return repo
}

// List returns every record ordered by insertion.
func (r *MemorySourceRepository) List(context.Context) ([]SourceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]SourceRecord(nil), r.records...), nil
}

// Create appends a record with the next id.
func (r *MemorySourceRepository) Create(_ context.Context, provider, name, content string) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.records = append(r.records, SourceRecord{ID: id, Provider: provider, Name: name, Content: content})
	return id, nil
}

// UpdateContent replaces a record's content.
func (r *MemorySourceRepository) UpdateContent(_ context.Context, id uint32, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].Content = content
			return nil
		}
	}
	return ErrSourceNotFound
}

// Delete removes a record.
func (r *MemorySourceRepository) Delete(_ context.Context, id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrSourceNotFound
}
