package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/smolDB/lib/db"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message. Responses echo the
// MsgType of the request they answer, except for failures which carry
// MsgTError plus an error code.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	DB       string `json:"db,omitempty"`       // database name
	Location string `json:"location,omitempty"` // location within a database
	Data     string `json:"data,omitempty"`     // payload: Write/SetKey (request), Read/Write/DeleteData (response)

	// Access management fields
	Settings  *db.Settings `json:"settings,omitempty"`   // GetSettings (response), SetSettings (request)
	TargetKey string       `json:"target_key,omitempty"` // AddUser, RemoveUser, AddAdmin, RemoveAdmin
	Role      string       `json:"role,omitempty"`       // GetRole (response)

	// Listing fields
	Names    []string          `json:"names,omitempty"`    // ListDB (response)
	Contents map[string]string `json:"contents,omitempty"` // ListContents (response)

	// Response only fields
	Ok      bool   `json:"ok,omitempty"`       // Write/DeleteData: whether the location existed before
	Err     string `json:"err,omitempty"`      // human-readable error detail
	ErrCode string `json:"err_code,omitempty"` // machine-readable error code

	// Encryption fields
	Bytes []byte `json:"bytes,omitempty"` // DER public keys and encrypted frames
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSuccessResponse creates a response for a request that has no payload
// to return beyond its success.
func NewSuccessResponse(msgType MessageType) *Message {
	return &Message{MsgType: msgType}
}

// NewSetKeyRequest creates a new SetKey request
func NewSetKeyRequest(accessKey string) *Message {
	return &Message{
		MsgType: MsgTSetKey,
		Data:    accessKey,
	}
}

// NewCreateDBRequest creates a new CreateDB request. A nil settings
// pointer leaves the server defaults in place.
func NewCreateDBRequest(name string, settings *db.Settings) *Message {
	return &Message{
		MsgType:  MsgTCreateDB,
		DB:       name,
		Settings: settings,
	}
}

// NewDeleteDBRequest creates a new DeleteDB request
func NewDeleteDBRequest(name string) *Message {
	return &Message{
		MsgType: MsgTDeleteDB,
		DB:      name,
	}
}

// NewReadRequest creates a new Read request
func NewReadRequest(name, location string) *Message {
	return &Message{
		MsgType:  MsgTRead,
		DB:       name,
		Location: location,
	}
}

// NewReadResponse creates a new Read response
func NewReadResponse(data string) *Message {
	return &Message{
		MsgType: MsgTRead,
		Data:    data,
	}
}

// NewWriteRequest creates a new Write request
func NewWriteRequest(name, location, data string) *Message {
	return &Message{
		MsgType:  MsgTWrite,
		DB:       name,
		Location: location,
		Data:     data,
	}
}

// NewWriteResponse creates a new Write response carrying the previous
// payload and whether the location existed before.
func NewWriteResponse(previous string, existed bool) *Message {
	return &Message{
		MsgType: MsgTWrite,
		Data:    previous,
		Ok:      existed,
	}
}

// NewDeleteDataRequest creates a new DeleteData request
func NewDeleteDataRequest(name, location string) *Message {
	return &Message{
		MsgType:  MsgTDeleteData,
		DB:       name,
		Location: location,
	}
}

// NewDeleteDataResponse creates a new DeleteData response carrying the
// removed payload.
func NewDeleteDataResponse(removed string) *Message {
	return &Message{
		MsgType: MsgTDeleteData,
		Data:    removed,
		Ok:      true,
	}
}

// NewListDBRequest creates a new ListDB request
func NewListDBRequest() *Message {
	return &Message{MsgType: MsgTListDB}
}

// NewListDBResponse creates a new ListDB response
func NewListDBResponse(names []string) *Message {
	return &Message{
		MsgType: MsgTListDB,
		Names:   names,
	}
}

// NewListContentsRequest creates a new ListContents request
func NewListContentsRequest(name string) *Message {
	return &Message{
		MsgType: MsgTListContents,
		DB:      name,
	}
}

// NewListContentsResponse creates a new ListContents response
func NewListContentsResponse(contents map[string]string) *Message {
	return &Message{
		MsgType:  MsgTListContents,
		Contents: contents,
	}
}

// NewGetSettingsRequest creates a new GetSettings request
func NewGetSettingsRequest(name string) *Message {
	return &Message{
		MsgType: MsgTGetSettings,
		DB:      name,
	}
}

// NewGetSettingsResponse creates a new GetSettings response
func NewGetSettingsResponse(settings db.Settings) *Message {
	return &Message{
		MsgType:  MsgTGetSettings,
		Settings: &settings,
	}
}

// NewSetSettingsRequest creates a new SetSettings request
func NewSetSettingsRequest(name string, settings db.Settings) *Message {
	return &Message{
		MsgType:  MsgTSetSettings,
		DB:       name,
		Settings: &settings,
	}
}

// NewGetRoleRequest creates a new GetRole request
func NewGetRoleRequest(name string) *Message {
	return &Message{
		MsgType: MsgTGetRole,
		DB:      name,
	}
}

// NewGetRoleResponse creates a new GetRole response
func NewGetRoleResponse(role db.Role) *Message {
	return &Message{
		MsgType: MsgTGetRole,
		Role:    role.String(),
	}
}

// NewAccessRequest creates a request for one of the four user/admin list
// operations (MsgTAddUser, MsgTRemoveUser, MsgTAddAdmin, MsgTRemoveAdmin).
func NewAccessRequest(msgType MessageType, name, targetKey string) *Message {
	return &Message{
		MsgType:   msgType,
		DB:        name,
		TargetKey: targetKey,
	}
}

// NewSetupEncryptionRequest creates a new SetupEncryption request
func NewSetupEncryptionRequest() *Message {
	return &Message{MsgType: MsgTSetupEncryption}
}

// NewSetupEncryptionResponse creates a SetupEncryption response carrying
// the server's DER-encoded public key.
func NewSetupEncryptionResponse(pubKeyDER []byte) *Message {
	return &Message{
		MsgType: MsgTSetupEncryption,
		Bytes:   pubKeyDER,
	}
}

// NewPubKeyRequest creates a PubKey request carrying the client's
// DER-encoded public key.
func NewPubKeyRequest(pubKeyDER []byte) *Message {
	return &Message{
		MsgType: MsgTPubKey,
		Bytes:   pubKeyDER,
	}
}

// NewEncryptedMessage wraps an encrypted serialized message.
func NewEncryptedMessage(ciphertext []byte) *Message {
	return &Message{
		MsgType: MsgTEncrypted,
		Bytes:   ciphertext,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		ErrCode: code,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSetKey:
		return "setKey"
	case MsgTCreateDB:
		return "createDB"
	case MsgTDeleteDB:
		return "deleteDB"
	case MsgTRead:
		return "read"
	case MsgTWrite:
		return "write"
	case MsgTDeleteData:
		return "deleteData"
	case MsgTListDB:
		return "listDB"
	case MsgTListContents:
		return "listContents"
	case MsgTGetSettings:
		return "getSettings"
	case MsgTSetSettings:
		return "setSettings"
	case MsgTGetRole:
		return "getRole"
	case MsgTAddUser:
		return "addUser"
	case MsgTRemoveUser:
		return "removeUser"
	case MsgTAddAdmin:
		return "addAdmin"
	case MsgTRemoveAdmin:
		return "removeAdmin"
	case MsgTSetupEncryption:
		return "setupEncryption"
	case MsgTPubKey:
		return "pubKey"
	case MsgTEncrypted:
		return "encrypted"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "setKey":
		*t = MsgTSetKey
	case "createDB":
		*t = MsgTCreateDB
	case "deleteDB":
		*t = MsgTDeleteDB
	case "read":
		*t = MsgTRead
	case "write":
		*t = MsgTWrite
	case "deleteData":
		*t = MsgTDeleteData
	case "listDB":
		*t = MsgTListDB
	case "listContents":
		*t = MsgTListContents
	case "getSettings":
		*t = MsgTGetSettings
	case "setSettings":
		*t = MsgTSetSettings
	case "getRole":
		*t = MsgTGetRole
	case "addUser":
		*t = MsgTAddUser
	case "removeUser":
		*t = MsgTRemoveUser
	case "addAdmin":
		*t = MsgTAddAdmin
	case "removeAdmin":
		*t = MsgTRemoveAdmin
	case "setupEncryption":
		*t = MsgTSetupEncryption
	case "pubKey":
		*t = MsgTPubKey
	case "encrypted":
		*t = MsgTEncrypted
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Session operations

	MsgTSetKey // Set the access key for this connection

	// Database lifecycle operations

	MsgTCreateDB // Create a database
	MsgTDeleteDB // Delete a database

	// Data operations

	MsgTRead       // Read the payload at a location
	MsgTWrite      // Write a payload to a location
	MsgTDeleteData // Remove a location

	// Listing operations

	MsgTListDB       // List all database names
	MsgTListContents // List the full contents of a database

	// Access management operations

	MsgTGetSettings // Read the settings of a database
	MsgTSetSettings // Replace the settings of a database
	MsgTGetRole     // Resolve the requester's own role
	MsgTAddUser     // Add a key to the user list
	MsgTRemoveUser  // Remove a key from the user list
	MsgTAddAdmin    // Add a key to the admin list
	MsgTRemoveAdmin // Remove a key from the admin list

	// Encryption operations

	MsgTSetupEncryption // Request the server's public key
	MsgTPubKey          // Register the client's public key
	MsgTEncrypted       // Wrapper carrying an encrypted message
)
