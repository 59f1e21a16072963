package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Duration
// --------------------------------------------------------------------------

// Duration is a time.Duration that is carried on the wire and in database
// files as {"secs": ..., "nanos": ...}.
type Duration time.Duration

type durationJSON struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements the json.Marshaler interface for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	std := time.Duration(d)
	if std < 0 {
		return nil, fmt.Errorf("negative duration: %v", std)
	}
	return json.Marshal(durationJSON{
		Secs:  uint64(std / time.Second),
		Nanos: uint32(std % time.Second),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v durationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Duration(time.Duration(v.Secs)*time.Second + time.Duration(v.Nanos))
	return nil
}

// --------------------------------------------------------------------------
// RWX
// --------------------------------------------------------------------------

// RWX holds the three capability bits of one role on a database: read,
// write and list. It is encoded as a three element bool array.
type RWX struct {
	Read  bool
	Write bool
	List  bool
}

// Allows returns whether the bit for the given operation is set.
func (r RWX) Allows(op Operation) bool {
	switch op {
	case OpRead:
		return r.Read
	case OpWrite:
		return r.Write
	case OpList:
		return r.List
	default:
		return false
	}
}

// MarshalJSON implements the json.Marshaler interface for RWX.
func (r RWX) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]bool{r.Read, r.Write, r.List})
}

// UnmarshalJSON implements the json.Unmarshaler interface for RWX.
func (r *RWX) UnmarshalJSON(data []byte) error {
	var v [3]bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Read, r.Write, r.List = v[0], v[1], v[2]
	return nil
}

// --------------------------------------------------------------------------
// Settings
// --------------------------------------------------------------------------

// Settings describes the configuration of one database: how long it may
// sit idle before it is flushed and evicted, which capabilities the user
// and other roles have, and which access keys count as admins or users.
//
// An identity present in both Admins and Users resolves as admin, admins
// bypass the rwx bits entirely.
type Settings struct {
	// InvalidationTime is the idle duration after which the database
	// becomes eligible for flush and eviction.
	InvalidationTime Duration `json:"invalidation_time"`
	// CanOthersRWX are the capabilities of requesters matching neither list
	CanOthersRWX RWX `json:"can_others_rwx"`
	// CanUsersRWX are the capabilities of requesters in the Users list
	CanUsersRWX RWX `json:"can_users_rwx"`
	// Admins are the access keys with unrestricted access to this database
	Admins []string `json:"admins"`
	// Users are the access keys governed by CanUsersRWX
	Users []string `json:"users"`
}

// DefaultSettings returns the settings a database is created with when the
// client does not specify any: 30 second invalidation, full access for
// users, no access for others.
func DefaultSettings() Settings {
	return Settings{
		InvalidationTime: Duration(30 * time.Second),
		CanOthersRWX:     RWX{},
		CanUsersRWX:      RWX{Read: true, Write: true, List: true},
		Admins:           []string{},
		Users:            []string{},
	}
}

// IsAdmin returns true if the given key is in the admin list.
func (s *Settings) IsAdmin(key string) bool {
	return contains(s.Admins, key)
}

// IsUser returns true if the given key is in the user list.
func (s *Settings) IsUser(key string) bool {
	return contains(s.Users, key)
}

// AddAdmin adds a key to the admin list. Adding a present key is a no-op.
func (s *Settings) AddAdmin(key string) {
	if !contains(s.Admins, key) {
		s.Admins = append(s.Admins, key)
	}
}

// AddUser adds a key to the user list. Adding a present key is a no-op.
func (s *Settings) AddUser(key string) {
	if !contains(s.Users, key) {
		s.Users = append(s.Users, key)
	}
}

// RemoveAdmin removes every occurrence of the given key from the admin
// list. It returns false if the key was not present.
func (s *Settings) RemoveAdmin(key string) bool {
	var removed bool
	s.Admins, removed = remove(s.Admins, key)
	return removed
}

// RemoveUser removes every occurrence of the given key from the user
// list. It returns false if the key was not present.
func (s *Settings) RemoveUser(key string) bool {
	var removed bool
	s.Users, removed = remove(s.Users, key)
	return removed
}

// Clone returns a deep copy of the settings.
func (s *Settings) Clone() Settings {
	c := *s
	c.Admins = append([]string(nil), s.Admins...)
	c.Users = append([]string(nil), s.Users...)
	return c
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func contains(list []string, key string) bool {
	for _, k := range list {
		if k == key {
			return true
		}
	}
	return false
}

func remove(list []string, key string) ([]string, bool) {
	out := list[:0]
	removed := false
	for _, k := range list {
		if k == key {
			removed = true
			continue
		}
		out = append(out, k)
	}
	return out, removed
}
