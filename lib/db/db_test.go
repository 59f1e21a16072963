package db

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// testSettings returns settings with the given bits and one admin ("alice")
// and one user ("bob")
func testSettings(others, users RWX) Settings {
	return Settings{
		InvalidationTime: Duration(30 * time.Second),
		CanOthersRWX:     others,
		CanUsersRWX:      users,
		Admins:           []string{"alice"},
		Users:            []string{"bob"},
	}
}

// allRWX enumerates every combination of the three capability bits
func allRWX() []RWX {
	var out []RWX
	for i := 0; i < 8; i++ {
		out = append(out, RWX{
			Read:  i&1 != 0,
			Write: i&2 != 0,
			List:  i&4 != 0,
		})
	}
	return out
}

func TestAdminBypassesBits(t *testing.T) {
	ops := []Operation{OpRead, OpWrite, OpList}

	for _, others := range allRWX() {
		for _, users := range allRWX() {
			s := testSettings(others, users)
			for _, op := range ops {
				if !s.Allows(s.RoleOf("alice", nil), op) {
					t.Errorf("admin denied %s with others=%+v users=%+v", op, others, users)
				}
			}
		}
	}
}

func TestRoleBitsEnforced(t *testing.T) {
	ops := []Operation{OpRead, OpWrite, OpList}

	for _, bits := range allRWX() {
		s := testSettings(bits, bits)
		for i, op := range ops {
			want := [3]bool{bits.Read, bits.Write, bits.List}[i]

			if got := s.Allows(s.RoleOf("bob", nil), op); got != want {
				t.Errorf("user %s with bits %+v: got %v, want %v", op, bits, got, want)
			}
			if got := s.Allows(s.RoleOf("", nil), op); got != want {
				t.Errorf("anonymous %s with bits %+v: got %v, want %v", op, bits, got, want)
			}
			if got := s.Allows(s.RoleOf("stranger", nil), op); got != want {
				t.Errorf("unmatched key %s with bits %+v: got %v, want %v", op, bits, got, want)
			}
		}
	}
}

func TestRoleResolutionOrder(t *testing.T) {
	s := testSettings(RWX{}, RWX{})

	// admin outranks user when a key is in both lists
	s.AddUser("alice")
	if got := s.RoleOf("alice", nil); got != RoleAdmin {
		t.Errorf("expected admin for key in both lists, got %s", got)
	}

	// super admins outrank everything
	if got := s.RoleOf("root", []string{"root"}); got != RoleSuperAdmin {
		t.Errorf("expected super_admin, got %s", got)
	}
	if got := s.RoleOf("bob", nil); got != RoleUser {
		t.Errorf("expected user, got %s", got)
	}
	if got := s.RoleOf("nobody", nil); got != RoleOther {
		t.Errorf("expected other, got %s", got)
	}
}

func TestSettingsListMutation(t *testing.T) {
	s := testSettings(RWX{}, RWX{})

	s.AddUser("carol")
	if !s.IsUser("carol") {
		t.Error("expected carol to be a user after AddUser")
	}
	if !s.RemoveUser("carol") {
		t.Error("expected RemoveUser to report removal")
	}
	if s.RemoveUser("carol") {
		t.Error("expected RemoveUser of absent key to report false")
	}

	s.AddAdmin("dave")
	if got := s.RoleOf("dave", nil); got != RoleAdmin {
		t.Errorf("expected admin after AddAdmin, got %s", got)
	}
	if !s.RemoveAdmin("dave") {
		t.Error("expected RemoveAdmin to report removal")
	}
}

func TestSettingsJSONShape(t *testing.T) {
	s := Settings{
		InvalidationTime: Duration(90*time.Second + 500*time.Nanosecond),
		CanOthersRWX:     RWX{Read: true},
		CanUsersRWX:      RWX{Read: true, Write: true},
		Admins:           []string{"a"},
		Users:            []string{"u"},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("failed to marshal settings: %v", err)
	}

	// the wire shape uses {secs,nanos} durations and [r,w,x] arrays
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal raw settings: %v", err)
	}
	if string(raw["invalidation_time"]) != `{"secs":90,"nanos":500}` {
		t.Errorf("unexpected invalidation_time encoding: %s", raw["invalidation_time"])
	}
	if string(raw["can_users_rwx"]) != `[true,true,false]` {
		t.Errorf("unexpected can_users_rwx encoding: %s", raw["can_users_rwx"])
	}

	var back Settings
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("failed to unmarshal settings: %v", err)
	}
	if back.InvalidationTime != s.InvalidationTime {
		t.Errorf("duration mismatch after round trip: %v != %v", back.InvalidationTime, s.InvalidationTime)
	}
	if back.CanUsersRWX != s.CanUsersRWX || back.CanOthersRWX != s.CanOthersRWX {
		t.Errorf("rwx mismatch after round trip: %+v", back)
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	d := New(testSettings(RWX{}, RWX{Read: true, Write: true}))
	d.Contents["loc1"] = "hello"
	d.Contents["loc2"] = "world"
	d.MarkDirty()

	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		t.Fatalf("failed to save database: %v", err)
	}

	loaded, err := Load(&buf, time.Now().UnixNano())
	if err != nil {
		t.Fatalf("failed to load database: %v", err)
	}

	if loaded.Dirty() {
		t.Error("loaded database should not be dirty")
	}
	if len(loaded.Contents) != 2 || loaded.Contents["loc1"] != "hello" || loaded.Contents["loc2"] != "world" {
		t.Errorf("contents mismatch after load: %+v", loaded.Contents)
	}
	if !loaded.Settings.IsAdmin("alice") {
		t.Error("settings lost after load")
	}
}

func TestDirtyVersionGuard(t *testing.T) {
	d := New(DefaultSettings())

	d.MarkDirty()
	v := d.Version()

	// a racing mutation must keep the flag set
	d.MarkDirty()
	if d.ClearDirty(v) {
		t.Error("ClearDirty must fail when a mutation raced the flush")
	}
	if !d.Dirty() {
		t.Error("dirty flag lost after failed ClearDirty")
	}

	if !d.ClearDirty(d.Version()) {
		t.Error("ClearDirty with current version must succeed")
	}
	if d.Dirty() {
		t.Error("dirty flag still set after ClearDirty")
	}
}
