package server

import (
	"testing"
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/ValentinKolb/smolDB/lib/logging"
	"github.com/ValentinKolb/smolDB/lib/registry"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/encryption"
	"github.com/ValentinKolb/smolDB/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server with a memory-only registry, sessions are
// driven directly without a transport
func newTestServer(t *testing.T) *RPCServer {
	t.Helper()

	reg, err := registry.New(registry.Config{SuperAdmins: []string{"root"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	keys, err := encryption.NewKeyPair()
	require.NoError(t, err)

	return &RPCServer{
		registry:   reg,
		serializer: serializer.NewJSONSerializer(),
		keys:       keys,
		logger:     logging.GetLogger("server"),
	}
}

// roundTrip pushes one message through the session and decodes the reply
func roundTrip(t *testing.T, s *session, msg *common.Message) common.Message {
	t.Helper()

	req, err := s.server.serializer.Serialize(*msg)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.server.serializer.Deserialize(s.Handle(req), &resp))
	return resp
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	s := newSession(srv)
	defer s.Close()

	resp := roundTrip(t, s, common.NewSetKeyRequest("alice"))
	assert.Equal(t, common.MsgTSetKey, resp.MsgType)

	resp = roundTrip(t, s, common.NewCreateDBRequest("test", nil))
	assert.Equal(t, common.MsgTCreateDB, resp.MsgType)

	resp = roundTrip(t, s, common.NewWriteRequest("test", "loc", "v1"))
	require.Equal(t, common.MsgTWrite, resp.MsgType)
	assert.False(t, resp.Ok)

	resp = roundTrip(t, s, common.NewWriteRequest("test", "loc", "v2"))
	require.Equal(t, common.MsgTWrite, resp.MsgType)
	assert.True(t, resp.Ok)
	assert.Equal(t, "v1", resp.Data)

	resp = roundTrip(t, s, common.NewReadRequest("test", "loc"))
	require.Equal(t, common.MsgTRead, resp.MsgType)
	assert.Equal(t, "v2", resp.Data)

	resp = roundTrip(t, s, common.NewListDBRequest())
	require.Equal(t, common.MsgTListDB, resp.MsgType)
	assert.Equal(t, []string{"test"}, resp.Names)

	resp = roundTrip(t, s, common.NewListContentsRequest("test"))
	require.Equal(t, common.MsgTListContents, resp.MsgType)
	assert.Equal(t, map[string]string{"loc": "v2"}, resp.Contents)

	resp = roundTrip(t, s, common.NewGetRoleRequest("test"))
	require.Equal(t, common.MsgTGetRole, resp.MsgType)
	assert.Equal(t, "admin", resp.Role)

	resp = roundTrip(t, s, common.NewDeleteDataRequest("test", "loc"))
	require.Equal(t, common.MsgTDeleteData, resp.MsgType)
	assert.Equal(t, "v2", resp.Data)

	resp = roundTrip(t, s, common.NewDeleteDBRequest("test"))
	assert.Equal(t, common.MsgTDeleteDB, resp.MsgType)
}

func TestSessionCreateDBWithSettings(t *testing.T) {
	srv := newTestServer(t)
	s := newSession(srv)
	defer s.Close()

	roundTrip(t, s, common.NewSetKeyRequest("alice"))

	settings := db.DefaultSettings()
	settings.InvalidationTime = db.Duration(5 * time.Second)
	settings.CanOthersRWX = db.RWX{Read: true}
	settings.Users = []string{"bob"}

	resp := roundTrip(t, s, common.NewCreateDBRequest("custom", &settings))
	require.Equal(t, common.MsgTCreateDB, resp.MsgType)

	// the settings carried by the request are the ones in force
	resp = roundTrip(t, s, common.NewGetSettingsRequest("custom"))
	require.Equal(t, common.MsgTGetSettings, resp.MsgType)
	require.NotNil(t, resp.Settings)
	assert.Equal(t, db.Duration(5*time.Second), resp.Settings.InvalidationTime)
	assert.Equal(t, db.RWX{Read: true}, resp.Settings.CanOthersRWX)
	assert.Equal(t, []string{"bob"}, resp.Settings.Users)
	assert.True(t, resp.Settings.IsAdmin("alice"))
}

func TestSessionSettingsAndAccess(t *testing.T) {
	srv := newTestServer(t)
	s := newSession(srv)
	defer s.Close()

	roundTrip(t, s, common.NewSetKeyRequest("alice"))
	roundTrip(t, s, common.NewCreateDBRequest("test", nil))

	resp := roundTrip(t, s, common.NewGetSettingsRequest("test"))
	require.Equal(t, common.MsgTGetSettings, resp.MsgType)
	require.NotNil(t, resp.Settings)

	settings := *resp.Settings
	settings.CanOthersRWX = db.RWX{Read: true}
	resp = roundTrip(t, s, common.NewSetSettingsRequest("test", settings))
	assert.Equal(t, common.MsgTSetSettings, resp.MsgType)

	resp = roundTrip(t, s, common.NewAccessRequest(common.MsgTAddUser, "test", "bob"))
	assert.Equal(t, common.MsgTAddUser, resp.MsgType)
	resp = roundTrip(t, s, common.NewAccessRequest(common.MsgTAddAdmin, "test", "carol"))
	assert.Equal(t, common.MsgTAddAdmin, resp.MsgType)
	resp = roundTrip(t, s, common.NewAccessRequest(common.MsgTRemoveUser, "test", "bob"))
	assert.Equal(t, common.MsgTRemoveUser, resp.MsgType)
	resp = roundTrip(t, s, common.NewAccessRequest(common.MsgTRemoveAdmin, "test", "carol"))
	assert.Equal(t, common.MsgTRemoveAdmin, resp.MsgType)

	// missing settings payload is a bad request
	resp = roundTrip(t, s, &common.Message{MsgType: common.MsgTSetSettings, DB: "test"})
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "bad_request", resp.ErrCode)
}

func TestSessionPermissionErrors(t *testing.T) {
	srv := newTestServer(t)

	admin := newSession(srv)
	defer admin.Close()
	roundTrip(t, admin, common.NewSetKeyRequest("alice"))
	roundTrip(t, admin, common.NewCreateDBRequest("test", nil))

	// a second session without a key is an anonymous other
	stranger := newSession(srv)
	defer stranger.Close()

	resp := roundTrip(t, stranger, common.NewReadRequest("test", "loc"))
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "permission_denied", resp.ErrCode)

	resp = roundTrip(t, stranger, common.NewReadRequest("nope", "loc"))
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "not_found", resp.ErrCode)

	resp = roundTrip(t, stranger, common.NewCreateDBRequest("test", nil))
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "already_exists", resp.ErrCode)
}

func TestSessionBadRequests(t *testing.T) {
	srv := newTestServer(t)
	s := newSession(srv)
	defer s.Close()

	var resp common.Message
	require.NoError(t, srv.serializer.Deserialize(s.Handle([]byte("garbage")), &resp))
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "bad_request", resp.ErrCode)

	resp = roundTrip(t, s, &common.Message{MsgType: common.MsgTSuccess})
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "bad_request", resp.ErrCode)
}

func TestSessionEncryption(t *testing.T) {
	srv := newTestServer(t)
	s := newSession(srv)
	defer s.Close()

	// handshake: fetch the server key, register our own
	resp := roundTrip(t, s, common.NewSetupEncryptionRequest())
	require.Equal(t, common.MsgTSetupEncryption, resp.MsgType)
	serverPub, err := encryption.ParsePublicKeyDER(resp.Bytes)
	require.NoError(t, err)

	clientKeys, err := encryption.NewKeyPair()
	require.NoError(t, err)
	clientDER, err := clientKeys.PublicKeyDER()
	require.NoError(t, err)

	resp = roundTrip(t, s, common.NewPubKeyRequest(clientDER))
	require.Equal(t, common.MsgTPubKey, resp.MsgType)

	// sendEncrypted seals a message for the server and opens the sealed
	// reply with the client key
	sendEncrypted := func(msg *common.Message) common.Message {
		plain, err := srv.serializer.Serialize(*msg)
		require.NoError(t, err)
		ciphertext, err := encryption.Encrypt(serverPub, plain)
		require.NoError(t, err)

		envelope := roundTrip(t, s, common.NewEncryptedMessage(ciphertext))
		require.Equal(t, common.MsgTEncrypted, envelope.MsgType)

		opened, err := clientKeys.Decrypt(envelope.Bytes)
		require.NoError(t, err)
		var inner common.Message
		require.NoError(t, srv.serializer.Deserialize(opened, &inner))
		return inner
	}

	inner := sendEncrypted(common.NewSetKeyRequest("alice"))
	assert.Equal(t, common.MsgTSetKey, inner.MsgType)

	inner = sendEncrypted(common.NewCreateDBRequest("secret", nil))
	assert.Equal(t, common.MsgTCreateDB, inner.MsgType)

	inner = sendEncrypted(common.NewWriteRequest("secret", "loc", "classified"))
	assert.Equal(t, common.MsgTWrite, inner.MsgType)

	inner = sendEncrypted(common.NewReadRequest("secret", "loc"))
	require.Equal(t, common.MsgTRead, inner.MsgType)
	assert.Equal(t, "classified", inner.Data)

	// garbage ciphertext is rejected without killing the session
	resp = roundTrip(t, s, common.NewEncryptedMessage([]byte("junk")))
	require.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, "bad_request", resp.ErrCode)
}
