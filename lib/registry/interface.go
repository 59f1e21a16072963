package registry

import (
	"github.com/ValentinKolb/smolDB/lib/db"
)

// IRegistry is the engine behind the wire protocol: every command a client
// can send maps onto exactly one method. All methods take the requester's
// access key first and enforce the permission model internally, failures
// are reported as *Error values carrying a Code.
type IRegistry interface {
	// CreateDB creates a new database with the given settings, a nil
	// settings pointer applies the defaults. Any access key may create a
	// database, the creator is added to the admin list (unless the key
	// is empty).
	CreateDB(accessKey, name string, settings *db.Settings) error

	// DeleteDB removes a database from memory and storage. Requires the
	// admin tier.
	DeleteDB(accessKey, name string) error

	// Read returns the payload stored at location. Requires the read
	// capability. A missing location is a not-found error.
	Read(accessKey, name, location string) (string, error)

	// Write stores data at location and returns the previous payload
	// together with whether the location existed before. Requires the
	// write capability.
	Write(accessKey, name, location, data string) (string, bool, error)

	// DeleteData removes a location and returns the payload it held.
	// Requires the write capability. A missing location is a not-found
	// error.
	DeleteData(accessKey, name, location string) (string, error)

	// ListDatabases returns the names of all databases, sorted. Visible
	// to every requester.
	ListDatabases() []string

	// ListContents returns a copy of the full location-to-payload map.
	// Requires the list capability.
	ListContents(accessKey, name string) (map[string]string, error)

	// GetSettings returns a copy of the database settings. Requires the
	// admin tier.
	GetSettings(accessKey, name string) (db.Settings, error)

	// ChangeSettings replaces the database settings. Requires the admin
	// tier.
	ChangeSettings(accessKey, name string, settings db.Settings) error

	// RoleOf reports the role the requester's own key resolves to on the
	// database. Visible to every requester.
	RoleOf(accessKey, name string) (db.Role, error)

	// AddUser adds a key to the user list, AddAdmin to the admin list.
	// Both require the admin tier and are idempotent.
	AddUser(accessKey, name, userKey string) error
	AddAdmin(accessKey, name, adminKey string) error

	// RemoveUser and RemoveAdmin remove a key from the respective list.
	// Both require the admin tier, removing an absent key is a not-found
	// error.
	RemoveUser(accessKey, name, userKey string) error
	RemoveAdmin(accessKey, name, adminKey string) error

	// FlushAll writes every dirty database to storage. A no-op in
	// memory-only mode.
	FlushAll() error

	// Close stops the background sweeper and flushes all dirty state.
	Close() error
}
