package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/ValentinKolb/smolDB/lib/registry"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/serializer"
	"github.com/ValentinKolb/smolDB/rpc/server"
	"github.com/ValentinKolb/smolDB/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer runs a memory-only server on a unix socket and returns
// the socket path
func startTestServer(t *testing.T) string {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "smoldb.sock")
	srv, err := server.NewRPCServer(
		common.ServerConfig{
			Endpoint:      socket,
			InMemory:      true,
			SuperAdmins:   []string{"root"},
			TimeoutSecond: 5,
		},
		serializer.NewJSONSerializer(),
		unix.NewUnixServerTransport(),
	)
	require.NoError(t, err)

	go func() {
		if err := srv.Serve(); err != nil {
			t.Errorf("server stopped with error: %v", err)
		}
	}()
	t.Cleanup(func() { _ = srv.Shutdown() })

	// wait for the socket to appear
	for i := 0; i < 100; i++ {
		if _, err := os.Stat(socket); err == nil {
			return socket
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server socket never appeared")
	return ""
}

func newTestClient(t *testing.T, socket, accessKey string, encrypt bool) *Client {
	t.Helper()

	c, err := NewClient(
		common.ClientConfig{
			Endpoint:      socket,
			AccessKey:     accessKey,
			Encrypt:       encrypt,
			TimeoutSecond: 5,
			RetryCount:    2,
		},
		serializer.NewJSONSerializer(),
		unix.NewUnixClientTransport(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientEndToEnd(t *testing.T) {
	socket := startTestServer(t)
	c := newTestClient(t, socket, "alice", false)

	require.NoError(t, c.CreateDB("users", nil))

	names, err := c.ListDatabases()
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)

	prev, existed, err := c.Write("users", "u1", "Alice")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "", prev)

	data, err := c.Read("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", data)

	contents, err := c.ListContents("users")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"u1": "Alice"}, contents)

	role, err := c.GetRole("users")
	require.NoError(t, err)
	assert.Equal(t, db.RoleAdmin, role)

	removed, err := c.DeleteData("users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", removed)

	require.NoError(t, c.DeleteDB("users"))
}

func TestClientAccessManagement(t *testing.T) {
	socket := startTestServer(t)

	// the database is created with bob already in the user list
	created := db.DefaultSettings()
	created.Users = []string{"bob"}

	admin := newTestClient(t, socket, "alice", false)
	require.NoError(t, admin.CreateDB("shared", &created))

	settings, err := admin.GetSettings("shared")
	require.NoError(t, err)
	assert.True(t, settings.IsUser("bob"))
	assert.True(t, settings.IsAdmin("alice"))

	// bob holds the user tier on a second connection
	bob := newTestClient(t, socket, "bob", false)
	role, err := bob.GetRole("shared")
	require.NoError(t, err)
	assert.Equal(t, db.RoleUser, role)

	_, _, err = bob.Write("shared", "loc", "data")
	require.NoError(t, err)

	// settings stay admin-only
	_, err = bob.GetSettings("shared")
	require.Error(t, err)
	assert.Equal(t, registry.CodePermissionDenied, registry.CodeOf(err))

	// a stranger is denied outright
	stranger := newTestClient(t, socket, "", false)
	_, err = stranger.Read("shared", "loc")
	require.Error(t, err)
	assert.Equal(t, registry.CodePermissionDenied, registry.CodeOf(err))

	// until the database is opened up
	settings.CanOthersRWX = db.RWX{Read: true}
	require.NoError(t, admin.ChangeSettings("shared", settings))

	data, err := stranger.Read("shared", "loc")
	require.NoError(t, err)
	assert.Equal(t, "data", data)
}

func TestClientErrorCodes(t *testing.T) {
	socket := startTestServer(t)
	c := newTestClient(t, socket, "alice", false)

	_, err := c.Read("missing", "loc")
	require.Error(t, err)
	assert.Equal(t, registry.CodeNotFound, registry.CodeOf(err))

	require.NoError(t, c.CreateDB("dup", nil))
	err = c.CreateDB("dup", nil)
	require.Error(t, err)
	assert.Equal(t, registry.CodeAlreadyExists, registry.CodeOf(err))
}

func TestClientEncryptedSession(t *testing.T) {
	socket := startTestServer(t)
	c := newTestClient(t, socket, "alice", true)

	require.NoError(t, c.CreateDB("secret", nil))

	_, _, err := c.Write("secret", "loc", "classified")
	require.NoError(t, err)

	data, err := c.Read("secret", "loc")
	require.NoError(t, err)
	assert.Equal(t, "classified", data)

	// errors travel encrypted too
	_, err = c.Read("missing", "loc")
	require.Error(t, err)
	assert.Equal(t, registry.CodeNotFound, registry.CodeOf(err))
}

func TestClientSetKey(t *testing.T) {
	socket := startTestServer(t)

	admin := newTestClient(t, socket, "alice", false)
	require.NoError(t, admin.CreateDB("mine", nil))

	c := newTestClient(t, socket, "", false)
	role, err := c.GetRole("mine")
	require.NoError(t, err)
	assert.Equal(t, db.RoleOther, role)

	// switching the key mid-session changes the role
	require.NoError(t, c.SetKey("alice"))
	role, err = c.GetRole("mine")
	require.NoError(t, err)
	assert.Equal(t, db.RoleAdmin, role)
}
