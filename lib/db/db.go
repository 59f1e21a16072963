package db

import (
	"encoding/json"
	"io"
)

// Database is one named key-value store together with its settings and the
// bookkeeping the invalidation manager needs: the last access time and the
// dirty flag. The zero value is not usable, construct instances with New
// or Load.
//
// Thread-safety: Database is not thread-safe, the owning registry entry
// serializes access.
type Database struct {
	Settings Settings
	Contents map[string]string

	lastAccess int64 // unix nanos of the most recent successful operation
	dirty      bool
	version    uint64 // incremented on every mutation, guards dirty clearing
}

// New creates an empty, non-dirty database with the given settings.
func New(settings Settings) *Database {
	return &Database{
		Settings: settings,
		Contents: map[string]string{},
	}
}

// --------------------------------------------------------------------------
// Access Time / Dirty Tracking
// --------------------------------------------------------------------------

// Touch refreshes the last access timestamp.
func (d *Database) Touch(nowUnixNano int64) {
	d.lastAccess = nowUnixNano
}

// LastAccess returns the unix nano timestamp of the most recent access.
func (d *Database) LastAccess() int64 {
	return d.lastAccess
}

// MarkDirty records an unflushed mutation.
func (d *Database) MarkDirty() {
	d.dirty = true
	d.version++
}

// Dirty returns whether the database has unflushed mutations.
func (d *Database) Dirty() bool {
	return d.dirty
}

// Version returns the mutation counter. The flush path snapshots the
// version together with the contents and clears the dirty flag only if no
// further mutation happened in between.
func (d *Database) Version() uint64 {
	return d.version
}

// ClearDirty clears the dirty flag if the version still matches the given
// snapshot version. It returns false if a mutation raced the flush, in
// which case the flag stays set and the next sweep retries.
func (d *Database) ClearDirty(version uint64) bool {
	if d.version != version {
		return false
	}
	d.dirty = false
	return true
}

// --------------------------------------------------------------------------
// Permissions
// --------------------------------------------------------------------------

// RoleOf resolves the role the given access key has on this database.
func (d *Database) RoleOf(key string, superAdmins []string) Role {
	return d.Settings.RoleOf(key, superAdmins)
}

// Allows decides whether the given access key may perform op on this
// database.
func (d *Database) Allows(key string, op Operation, superAdmins []string) bool {
	return d.Settings.Allows(d.Settings.RoleOf(key, superAdmins), op)
}

// --------------------------------------------------------------------------
// Snapshot Persistence
// --------------------------------------------------------------------------

// snapshot is the on-disk shape of a database: settings plus the full
// contents, rewritten wholesale on every flush.
type snapshot struct {
	Settings Settings          `json:"settings"`
	Contents map[string]string `json:"contents"`
}

// Snapshot returns a deep copy of the database suitable for writing to
// storage outside the entry lock.
func (d *Database) Snapshot() *Database {
	contents := make(map[string]string, len(d.Contents))
	for k, v := range d.Contents {
		contents[k] = v
	}
	return &Database{
		Settings: d.Settings.Clone(),
		Contents: contents,
	}
}

// Save persists the current state of the database to the provided io.Writer.
func (d *Database) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(snapshot{
		Settings: d.Settings,
		Contents: d.Contents,
	})
}

// Load restores a database from the data provided by an io.Reader. The
// loaded database is resident and non-dirty, the access time starts at the
// given timestamp.
func Load(r io.Reader, nowUnixNano int64) (*Database, error) {
	var snap snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Contents == nil {
		snap.Contents = map[string]string{}
	}
	d := &Database{
		Settings: snap.Settings,
		Contents: snap.Contents,
	}
	d.Touch(nowUnixNano)
	return d, nil
}
