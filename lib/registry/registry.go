package registry

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/ValentinKolb/smolDB/lib/logging"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Config bundles everything a Registry needs at construction time.
type Config struct {
	// Storage is the durable backend. A nil Storage enables memory-only
	// mode: nothing is persisted and no database is ever evicted.
	Storage Storage

	// SuperAdmins are access keys that hold the admin tier on every
	// database regardless of per-database lists.
	SuperAdmins []string

	// SweepInterval is how often the invalidation sweep runs. Zero
	// disables the background sweeper (sweeps can still be triggered
	// manually, used by tests).
	SweepInterval time.Duration

	// NoEvict keeps idle databases resident: the sweep still flushes
	// dirty state but never drops a database from memory.
	NoEvict bool
}

// entry is one slot in the registry map. db == nil means the database is
// evicted to storage and will be lazily reloaded on the next access.
// deleted marks entries that lost a race against DeleteDB, readers holding
// a stale pointer must re-check it after locking.
type entry struct {
	mu      sync.RWMutex
	db      *db.Database
	deleted bool
}

// Registry implements IRegistry. It owns the name-to-entry map, the
// per-entry locks and the interaction with storage.
//
// Lock order: namesMu before any entry lock, never the other way around.
// No lock guarding the table or a database is held across storage I/O.
type Registry struct {
	cfg     Config
	entries *xsync.MapOf[string, *entry]

	// namesMu guards name reservations for create/delete, creating holds
	// names whose database file is being written before the entry exists
	namesMu  sync.Mutex
	creating map[string]struct{}

	// indexMu serializes index writes, no data operation ever takes it
	indexMu sync.Mutex

	logger *zap.SugaredLogger

	sweepStop chan struct{}
	sweepDone chan struct{}
}

var _ IRegistry = (*Registry)(nil)

// New creates a Registry. With a storage backend the index of known
// databases is read back and every name starts out evicted, to be loaded
// on first access.
func New(cfg Config) (*Registry, error) {
	r := &Registry{
		cfg:      cfg,
		entries:  xsync.NewMapOf[string, *entry](),
		creating: map[string]struct{}{},
		logger:   logging.GetLogger("registry"),
	}

	if cfg.Storage != nil {
		names, err := cfg.Storage.LoadIndex()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			r.entries.Store(name, &entry{})
		}
		r.logger.Infof("loaded index with %d databases", len(names))
	} else {
		r.logger.Info("running in memory-only mode")
	}

	if cfg.SweepInterval > 0 {
		r.sweepStop = make(chan struct{})
		r.sweepDone = make(chan struct{})
		go r.sweepLoop()
	}

	return r, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRegistry)
// --------------------------------------------------------------------------

func (r *Registry) CreateDB(accessKey, name string, settings *db.Settings) error {
	if name == "" {
		return NewError(CodeBadRequest, "database name must not be empty")
	}

	s := db.DefaultSettings()
	if settings != nil {
		s = settings.Clone()
	}
	d := db.New(s)
	if accessKey != "" {
		d.Settings.AddAdmin(accessKey)
	}
	d.Touch(time.Now().UnixNano())

	// reserve the name, then persist without holding the lock
	r.namesMu.Lock()
	if _, ok := r.entries.Load(name); ok {
		r.namesMu.Unlock()
		return NewError(CodeAlreadyExists, "database %s already exists", name)
	}
	if _, ok := r.creating[name]; ok {
		r.namesMu.Unlock()
		return NewError(CodeAlreadyExists, "database %s already exists", name)
	}
	r.creating[name] = struct{}{}
	r.namesMu.Unlock()

	defer func() {
		r.namesMu.Lock()
		delete(r.creating, name)
		r.namesMu.Unlock()
	}()

	// the file exists before the database becomes visible, so the index
	// never references a missing file
	if r.cfg.Storage != nil {
		if err := r.cfg.Storage.SaveDB(name, d); err != nil {
			r.logger.Errorw("failed to persist new database", "db", name, "error", err)
			return NewError(CodeIoError, "failed to persist database %s", name)
		}
	}

	r.namesMu.Lock()
	r.entries.Store(name, &entry{db: d})
	r.namesMu.Unlock()

	r.logger.Infow("created database", "db", name)
	return r.saveIndex()
}

func (r *Registry) DeleteDB(accessKey, name string) error {
	e, ok := r.entries.Load(name)
	if !ok {
		return NewError(CodeNotFound, "database %s does not exist", name)
	}

	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return NewError(CodeNotFound, "database %s does not exist", name)
	}
	if err := r.ensureLoaded(name, e); err != nil {
		e.mu.Unlock()
		return err
	}
	if !e.db.RoleOf(accessKey, r.cfg.SuperAdmins).IsAdmin() {
		e.mu.Unlock()
		return NewError(CodePermissionDenied, "deleting %s requires the admin tier", name)
	}
	e.mu.Unlock()

	// remove the file first so a failed removal leaves the database
	// listed, readable and consistent with the index
	if r.cfg.Storage != nil {
		if err := r.cfg.Storage.DeleteDB(name); err != nil {
			r.logger.Errorw("failed to delete database file", "db", name, "error", err)
			return NewError(CodeIoError, "failed to delete database %s", name)
		}
	}

	r.namesMu.Lock()
	e.mu.Lock()
	e.deleted = true
	e.db = nil
	e.mu.Unlock()
	r.entries.Delete(name)
	r.namesMu.Unlock()

	r.logger.Infow("deleted database", "db", name)
	return r.saveIndex()
}

func (r *Registry) Read(accessKey, name, location string) (string, error) {
	var result string
	err := r.withDB(name, func(d *db.Database) error {
		if !d.Allows(accessKey, db.OpRead, r.cfg.SuperAdmins) {
			return NewError(CodePermissionDenied, "read on %s denied", name)
		}
		data, ok := d.Contents[location]
		if !ok {
			return NewError(CodeNotFound, "location %s not found in %s", location, name)
		}
		result = data
		return nil
	})
	return result, err
}

func (r *Registry) Write(accessKey, name, location, data string) (string, bool, error) {
	var (
		previous string
		existed  bool
	)
	err := r.withDB(name, func(d *db.Database) error {
		if !d.Allows(accessKey, db.OpWrite, r.cfg.SuperAdmins) {
			return NewError(CodePermissionDenied, "write on %s denied", name)
		}
		previous, existed = d.Contents[location]
		d.Contents[location] = data
		d.MarkDirty()
		return nil
	})
	return previous, existed, err
}

func (r *Registry) DeleteData(accessKey, name, location string) (string, error) {
	var removed string
	err := r.withDB(name, func(d *db.Database) error {
		if !d.Allows(accessKey, db.OpWrite, r.cfg.SuperAdmins) {
			return NewError(CodePermissionDenied, "write on %s denied", name)
		}
		data, ok := d.Contents[location]
		if !ok {
			return NewError(CodeNotFound, "location %s not found in %s", location, name)
		}
		delete(d.Contents, location)
		d.MarkDirty()
		removed = data
		return nil
	})
	return removed, err
}

func (r *Registry) ListDatabases() []string {
	names := make([]string, 0)
	r.entries.Range(func(name string, _ *entry) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (r *Registry) ListContents(accessKey, name string) (map[string]string, error) {
	var result map[string]string
	err := r.withDB(name, func(d *db.Database) error {
		if !d.Allows(accessKey, db.OpList, r.cfg.SuperAdmins) {
			return NewError(CodePermissionDenied, "list on %s denied", name)
		}
		result = make(map[string]string, len(d.Contents))
		for k, v := range d.Contents {
			result[k] = v
		}
		return nil
	})
	return result, err
}

func (r *Registry) GetSettings(accessKey, name string) (db.Settings, error) {
	var result db.Settings
	err := r.withDB(name, func(d *db.Database) error {
		if !d.RoleOf(accessKey, r.cfg.SuperAdmins).IsAdmin() {
			return NewError(CodePermissionDenied, "reading settings of %s requires the admin tier", name)
		}
		result = d.Settings.Clone()
		return nil
	})
	return result, err
}

func (r *Registry) ChangeSettings(accessKey, name string, settings db.Settings) error {
	return r.withDB(name, func(d *db.Database) error {
		if !d.RoleOf(accessKey, r.cfg.SuperAdmins).IsAdmin() {
			return NewError(CodePermissionDenied, "changing settings of %s requires the admin tier", name)
		}
		d.Settings = settings.Clone()
		d.MarkDirty()
		return nil
	})
}

func (r *Registry) RoleOf(accessKey, name string) (db.Role, error) {
	var result db.Role
	err := r.withDB(name, func(d *db.Database) error {
		result = d.RoleOf(accessKey, r.cfg.SuperAdmins)
		return nil
	})
	return result, err
}

func (r *Registry) AddUser(accessKey, name, userKey string) error {
	return r.mutateLists(accessKey, name, func(s *db.Settings) error {
		s.AddUser(userKey)
		return nil
	})
}

func (r *Registry) AddAdmin(accessKey, name, adminKey string) error {
	return r.mutateLists(accessKey, name, func(s *db.Settings) error {
		s.AddAdmin(adminKey)
		return nil
	})
}

func (r *Registry) RemoveUser(accessKey, name, userKey string) error {
	return r.mutateLists(accessKey, name, func(s *db.Settings) error {
		if !s.RemoveUser(userKey) {
			return NewError(CodeNotFound, "key is not a user of %s", name)
		}
		return nil
	})
}

func (r *Registry) RemoveAdmin(accessKey, name, adminKey string) error {
	return r.mutateLists(accessKey, name, func(s *db.Settings) error {
		if !s.RemoveAdmin(adminKey) {
			return NewError(CodeNotFound, "key is not an admin of %s", name)
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// withDB runs fn with the database loaded and its entry write-locked. It
// handles the lookup, the deleted re-check and the lazy reload from
// storage, and refreshes the access timestamp on success.
func (r *Registry) withDB(name string, fn func(d *db.Database) error) error {
	e, ok := r.entries.Load(name)
	if !ok {
		return NewError(CodeNotFound, "database %s does not exist", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// the entry may have been deleted between the map lookup and the lock
	if e.deleted {
		return NewError(CodeNotFound, "database %s does not exist", name)
	}
	if err := r.ensureLoaded(name, e); err != nil {
		return err
	}

	if err := fn(e.db); err != nil {
		return err
	}
	e.db.Touch(time.Now().UnixNano())
	return nil
}

// ensureLoaded reloads an evicted database from storage. Callers must hold
// the entry write lock.
func (r *Registry) ensureLoaded(name string, e *entry) error {
	if e.db != nil {
		return nil
	}
	if r.cfg.Storage == nil {
		// memory-only mode never evicts, this is unreachable
		return NewError(CodeIoError, "database %s has no resident state", name)
	}

	d, err := r.cfg.Storage.LoadDB(name)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Errorw("database file missing", "db", name)
			return NewError(CodeIoError, "database file for %s is missing", name)
		}
		r.logger.Errorw("failed to load database", "db", name, "error", err)
		return NewError(CodeIoError, "failed to load database %s", name)
	}

	e.db = d
	r.logger.Debugw("reloaded database from storage", "db", name)
	return nil
}

// mutateLists is the shared body of the four user/admin list operations:
// admin tier required, mutation marks the database dirty.
func (r *Registry) mutateLists(accessKey, name string, fn func(s *db.Settings) error) error {
	return r.withDB(name, func(d *db.Database) error {
		if !d.RoleOf(accessKey, r.cfg.SuperAdmins).IsAdmin() {
			return NewError(CodePermissionDenied, "managing access to %s requires the admin tier", name)
		}
		if err := fn(&d.Settings); err != nil {
			return err
		}
		d.MarkDirty()
		return nil
	})
}

// saveIndex rewrites the on-disk name index. indexMu serializes writers,
// the name list is collected under the same lock so the last writer
// persists the latest state. Data operations never touch indexMu, index
// I/O only ever stalls other create/delete calls.
func (r *Registry) saveIndex() error {
	if r.cfg.Storage == nil {
		return nil
	}

	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	if err := r.cfg.Storage.SaveIndex(r.ListDatabases()); err != nil {
		r.logger.Errorw("failed to persist database index", "error", err)
		return NewError(CodeIoError, "failed to persist database index")
	}
	return nil
}
