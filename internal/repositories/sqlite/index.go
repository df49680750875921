// Package sqlite provides the sqlite-backed instance index. The UNIQUE
// constraint on the device name is what makes instance registration
// at-most-once per name, including across processes sharing the database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/roostdev/roost/internal/device"
)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id TEXT PRIMARY KEY,
	device_name TEXT NOT NULL UNIQUE,
	config_dir TEXT NOT NULL,
	image_id TEXT NOT NULL,
	profile_name TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// InstanceIndex persists instance records in a sqlite database.
type InstanceIndex struct {
	db *sqlx.DB
}

// Open connects to the database at path, creating parent directories and the
// schema as needed.
func Open(path string) (*InstanceIndex, error) {
	if path == "" {
		return nil, errors.New("index path is not configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open instance index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize instance index schema: %w", err)
	}

	return &InstanceIndex{db: db}, nil
}

// Close releases the database connection.
func (i *InstanceIndex) Close() error {
	return i.db.Close()
}

type instanceRow struct {
	ID          string    `db:"id"`
	DeviceName  string    `db:"device_name"`
	ConfigDir   string    `db:"config_dir"`
	ImageID     string    `db:"image_id"`
	ProfileName string    `db:"profile_name"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r instanceRow) record() device.InstanceRecord {
	return device.InstanceRecord{
		ID:          r.ID,
		DeviceName:  r.DeviceName,
		ConfigDir:   r.ConfigDir,
		ImageID:     r.ImageID,
		ProfileName: r.ProfileName,
		CreatedAt:   r.CreatedAt,
	}
}

// Lookup returns the record registered under deviceName, or nil if none
// exists.
func (i *InstanceIndex) Lookup(deviceName string) (*device.InstanceRecord, error) {
	var row instanceRow
	err := i.db.Get(&row,
		`SELECT id, device_name, config_dir, image_id, profile_name, created_at
		 FROM instances WHERE device_name = $1`,
		deviceName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := row.record()
	return &record, nil
}

// List returns every registered record ordered by device name.
func (i *InstanceIndex) List() ([]device.InstanceRecord, error) {
	var rows []instanceRow
	err := i.db.Select(&rows,
		`SELECT id, device_name, config_dir, image_id, profile_name, created_at
		 FROM instances ORDER BY device_name`,
	)
	if err != nil {
		return nil, err
	}

	records := make([]device.InstanceRecord, len(rows))
	for index, row := range rows {
		records[index] = row.record()
	}
	return records, nil
}

// Register stores the record. A duplicate device name fails with
// device.ErrAlreadyRegistered and leaves the index unchanged.
func (i *InstanceIndex) Register(record device.InstanceRecord) (device.InstanceRecord, error) {
	_, err := i.db.NamedExec(
		`INSERT INTO instances (id, device_name, config_dir, image_id, profile_name, created_at)
		 VALUES (:id, :device_name, :config_dir, :image_id, :profile_name, :created_at)`,
		instanceRow{
			ID:          record.ID,
			DeviceName:  record.DeviceName,
			ConfigDir:   record.ConfigDir,
			ImageID:     record.ImageID,
			ProfileName: record.ProfileName,
			CreatedAt:   record.CreatedAt,
		},
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return device.InstanceRecord{}, fmt.Errorf("%w: %s", device.ErrAlreadyRegistered, record.DeviceName)
		}
		return device.InstanceRecord{}, err
	}
	return record, nil
}
