package registry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Storage persists database snapshots and the index of known database
// names. One file per database, named by database name, rewritten
// wholesale on each flush. A nil Storage on the registry means memory-only
// mode: nothing is persisted and nothing is ever evicted.
type Storage interface {
	// SaveDB writes the full snapshot of a database, replacing any
	// previous file.
	SaveDB(name string, d *db.Database) error
	// LoadDB reads a database snapshot back. os.IsNotExist errors are
	// passed through so callers can distinguish absent from corrupt.
	LoadDB(name string) (*db.Database, error)
	// DeleteDB removes the file of a database. Deleting an absent file
	// is not an error.
	DeleteDB(name string) error
	// SaveIndex persists the list of known database names.
	SaveIndex(names []string) error
	// LoadIndex reads the list of known database names. A missing index
	// file yields an empty list (first startup), a corrupt one an error.
	LoadIndex() ([]string, error)
}

const indexFile = "db_list.json"

// --------------------------------------------------------------------------
// File Storage
// --------------------------------------------------------------------------

// fileStorage implements Storage with one JSON document per database under
// a data directory.
type fileStorage struct {
	dir string
}

// NewFileStorage creates the data directory if necessary and returns a
// file-backed Storage.
func NewFileStorage(dir string) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", dir)
	}
	return &fileStorage{dir: dir}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see Storage)
// --------------------------------------------------------------------------

func (s *fileStorage) SaveDB(name string, d *db.Database) error {
	data, err := marshalDB(d)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize database %s", name)
	}
	return s.writeFile(s.dbPath(name), data)
}

func (s *fileStorage) LoadDB(name string) (*db.Database, error) {
	f, err := os.Open(s.dbPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to open database file %s", name)
	}
	defer f.Close()

	d, err := db.Load(f, time.Now().UnixNano())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize database %s", name)
	}
	return d, nil
}

func (s *fileStorage) DeleteDB(name string) error {
	if err := os.Remove(s.dbPath(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete database file %s", name)
	}
	return nil
}

func (s *fileStorage) SaveIndex(names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return errors.Wrap(err, "failed to serialize database index")
	}
	return s.writeFile(filepath.Join(s.dir, indexFile), data)
}

func (s *fileStorage) LoadIndex() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			// first startup, no databases yet
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "failed to read database index")
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, errors.Wrap(err, "database index is corrupt")
	}
	return names, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *fileStorage) dbPath(name string) string {
	return filepath.Join(s.dir, name)
}

// writeFile replaces the target atomically: write a temp file in the same
// directory, then rename over the target.
func (s *fileStorage) writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to close %s", path)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return nil
}

func marshalDB(d *db.Database) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
