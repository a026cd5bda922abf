package storage

import (
	"database/sql"
	"errors"
	"time"
)

// Item kinds as stored in digital_items.type.
const (
	KindFile = "file"
	KindKey  = "key"
)

// ErrItemNotFound is returned when a catalog lookup misses.
var ErrItemNotFound = errors.New("item not found")

// ItemRecord represents a digital item in the catalog.
//
// Exactly one of FilePath/KeyValue is populated, matching Kind: file
// items carry the path of the stored artifact, key items carry the
// activation key delivered verbatim.
type ItemRecord struct {
	ID          int64
	Name        string
	Kind        string
	FilePath    string
	KeyValue    string
	Instruction string
	CreatedAt   time.Time
}

// CreateFileItem inserts a file-backed item and returns its assigned id.
func (s *Store) CreateFileItem(name, filePath, instruction string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO digital_items (name, type, file_path, instruction, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, KindFile, filePath, instruction, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateKeyItem inserts a key-backed item and returns its assigned id.
func (s *Store) CreateKeyItem(name, keyValue, instruction string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO digital_items (name, type, key_value, instruction, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, KindKey, keyValue, instruction, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetItem retrieves an item by id.
func (s *Store) GetItem(id int64) (*ItemRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, name, type, file_path, key_value, instruction, created_at
		FROM digital_items WHERE id = ?
	`, id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListItems returns all items, newest first.
func (s *Store) ListItems() ([]*ItemRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, name, type, file_path, key_value, instruction, created_at
		FROM digital_items ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ItemRecord
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*ItemRecord, error) {
	var item ItemRecord
	var filePath, keyValue, instruction sql.NullString

	err := row.Scan(&item.ID, &item.Name, &item.Kind, &filePath, &keyValue, &instruction, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	item.FilePath = filePath.String
	item.KeyValue = keyValue.String
	item.Instruction = instruction.String
	return &item, nil
}
