package server

import (
	"crypto/rsa"

	"github.com/ValentinKolb/smolDB/lib/registry"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/encryption"
	"github.com/ValentinKolb/smolDB/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
)

var (
	metricRequests       = metrics.NewCounter("smoldb_requests_total")
	metricRequestErrors  = metrics.NewCounter("smoldb_request_errors_total")
	metricSessionsOpened = metrics.NewCounter("smoldb_sessions_opened_total")
	metricSessionsClosed = metrics.NewCounter("smoldb_sessions_closed_total")
)

// session holds the per-connection state: the access key set via SetKey
// and, once the encryption handshake is done, the client's public key. The
// transport guarantees Handle is never called concurrently for the same
// session.
type session struct {
	server    *RPCServer
	accessKey string
	clientPub *rsa.PublicKey
}

var _ transport.ISession = (*session)(nil)

func newSession(s *RPCServer) *session {
	metricSessionsOpened.Inc()
	return &session{server: s}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ISession)
// --------------------------------------------------------------------------

func (s *session) Handle(req []byte) []byte {
	metricRequests.Inc()

	var msg common.Message
	if err := s.server.serializer.Deserialize(req, &msg); err != nil {
		s.server.logger.Debugw("undecodable request", "error", err)
		return s.encode(s.errResponse(registry.NewError(registry.CodeBadRequest, "undecodable request")), false)
	}

	// unwrap the encryption envelope
	encrypted := false
	if msg.MsgType == common.MsgTEncrypted {
		plaintext, err := s.server.keys.Decrypt(msg.Bytes)
		if err != nil {
			s.server.logger.Debugw("undecryptable request", "error", err)
			return s.encode(s.errResponse(registry.NewError(registry.CodeBadRequest, "undecryptable request")), false)
		}
		if err := s.server.serializer.Deserialize(plaintext, &msg); err != nil {
			return s.encode(s.errResponse(registry.NewError(registry.CodeBadRequest, "undecodable request")), false)
		}
		encrypted = true
	}

	resp := s.dispatch(&msg)
	if resp.MsgType == common.MsgTError {
		metricRequestErrors.Inc()
	}

	// replies to encrypted requests are encrypted once the client's key
	// is registered
	return s.encode(resp, encrypted && s.clientPub != nil)
}

func (s *session) Close() {
	metricSessionsClosed.Inc()
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// dispatch routes one decoded message to the registry and builds the reply.
func (s *session) dispatch(msg *common.Message) *common.Message {
	reg := s.server.registry

	switch msg.MsgType {

	// Session operations

	case common.MsgTSetKey:
		s.accessKey = msg.Data
		return common.NewSuccessResponse(common.MsgTSetKey)

	// Database lifecycle operations

	case common.MsgTCreateDB:
		if err := reg.CreateDB(s.accessKey, msg.DB, msg.Settings); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTCreateDB)

	case common.MsgTDeleteDB:
		if err := reg.DeleteDB(s.accessKey, msg.DB); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTDeleteDB)

	// Data operations

	case common.MsgTRead:
		data, err := reg.Read(s.accessKey, msg.DB, msg.Location)
		if err != nil {
			return s.errResponse(err)
		}
		return common.NewReadResponse(data)

	case common.MsgTWrite:
		previous, existed, err := reg.Write(s.accessKey, msg.DB, msg.Location, msg.Data)
		if err != nil {
			return s.errResponse(err)
		}
		return common.NewWriteResponse(previous, existed)

	case common.MsgTDeleteData:
		removed, err := reg.DeleteData(s.accessKey, msg.DB, msg.Location)
		if err != nil {
			return s.errResponse(err)
		}
		return common.NewDeleteDataResponse(removed)

	// Listing operations

	case common.MsgTListDB:
		return common.NewListDBResponse(reg.ListDatabases())

	case common.MsgTListContents:
		contents, err := reg.ListContents(s.accessKey, msg.DB)
		if err != nil {
			return s.errResponse(err)
		}
		return common.NewListContentsResponse(contents)

	// Access management operations

	case common.MsgTGetSettings:
		settings, err := reg.GetSettings(s.accessKey, msg.DB)
		if err != nil {
			return s.errResponse(err)
		}
		return common.NewGetSettingsResponse(settings)

	case common.MsgTSetSettings:
		if msg.Settings == nil {
			return s.errResponse(registry.NewError(registry.CodeBadRequest, "settings missing"))
		}
		if err := reg.ChangeSettings(s.accessKey, msg.DB, *msg.Settings); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTSetSettings)

	case common.MsgTGetRole:
		role, err := reg.RoleOf(s.accessKey, msg.DB)
		if err != nil {
			return s.errResponse(err)
		}
		return common.NewGetRoleResponse(role)

	case common.MsgTAddUser:
		if err := reg.AddUser(s.accessKey, msg.DB, msg.TargetKey); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTAddUser)

	case common.MsgTRemoveUser:
		if err := reg.RemoveUser(s.accessKey, msg.DB, msg.TargetKey); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTRemoveUser)

	case common.MsgTAddAdmin:
		if err := reg.AddAdmin(s.accessKey, msg.DB, msg.TargetKey); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTAddAdmin)

	case common.MsgTRemoveAdmin:
		if err := reg.RemoveAdmin(s.accessKey, msg.DB, msg.TargetKey); err != nil {
			return s.errResponse(err)
		}
		return common.NewSuccessResponse(common.MsgTRemoveAdmin)

	// Encryption operations

	case common.MsgTSetupEncryption:
		der, err := s.server.keys.PublicKeyDER()
		if err != nil {
			return s.errResponse(registry.NewError(registry.CodeIoError, "failed to encode server key"))
		}
		return common.NewSetupEncryptionResponse(der)

	case common.MsgTPubKey:
		pub, err := encryption.ParsePublicKeyDER(msg.Bytes)
		if err != nil {
			return s.errResponse(registry.NewError(registry.CodeBadRequest, "invalid public key"))
		}
		s.clientPub = pub
		return common.NewSuccessResponse(common.MsgTPubKey)

	default:
		return s.errResponse(registry.NewError(registry.CodeBadRequest, "unsupported message type %s", msg.MsgType))
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// errResponse converts an engine error into an error reply.
func (s *session) errResponse(err error) *common.Message {
	return common.NewErrorResponse(registry.CodeOf(err).String(), err.Error())
}

// encode serializes a reply and optionally seals it for the client's key.
// Encoding failures degrade to a plain error reply, losing the payload but
// keeping the connection in sync.
func (s *session) encode(resp *common.Message, encrypt bool) []byte {
	data, err := s.server.serializer.Serialize(*resp)
	if err != nil {
		s.server.logger.Errorw("failed to serialize response", "error", err)
		data, _ = s.server.serializer.Serialize(*common.NewErrorResponse(
			registry.CodeUnknown.String(), "failed to serialize response"))
		return data
	}

	if encrypt {
		ciphertext, err := encryption.Encrypt(s.clientPub, data)
		if err != nil {
			s.server.logger.Errorw("failed to encrypt response", "error", err)
			data, _ = s.server.serializer.Serialize(*common.NewErrorResponse(
				registry.CodeUnknown.String(), "failed to encrypt response"))
			return data
		}
		data, err = s.server.serializer.Serialize(*common.NewEncryptedMessage(ciphertext))
		if err != nil {
			s.server.logger.Errorw("failed to serialize encrypted response", "error", err)
		}
	}
	return data
}
