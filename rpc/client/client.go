package client

import (
	"crypto/rsa"
	"sync"
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/ValentinKolb/smolDB/lib/logging"
	"github.com/ValentinKolb/smolDB/lib/registry"
	"github.com/ValentinKolb/smolDB/rpc/common"
	"github.com/ValentinKolb/smolDB/rpc/encryption"
	"github.com/ValentinKolb/smolDB/rpc/serializer"
	"github.com/ValentinKolb/smolDB/rpc/transport"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client is the Go client for the database server. It holds one connection
// and the session state that lives on it: the access key and, when
// encryption is enabled, the negotiated keys. All methods are safe for
// concurrent use, requests are serialized over the connection.
type Client struct {
	config     common.ClientConfig
	serializer serializer.IRPCSerializer
	transport  transport.IRPCClientTransport
	logger     *zap.SugaredLogger

	mu         sync.Mutex
	accessKey  string
	encrypted  bool
	serverPub  *rsa.PublicKey
	clientKeys *encryption.KeyPair
}

// NewClient connects to the server and establishes the session: the access
// key from the config is registered and, if requested, the encryption
// handshake is performed.
func NewClient(
	config common.ClientConfig,
	srlzr serializer.IRPCSerializer,
	trnsprt transport.IRPCClientTransport,
) (*Client, error) {
	if err := trnsprt.Connect(config); err != nil {
		return nil, err
	}

	c := &Client{
		config:     config,
		serializer: srlzr,
		transport:  trnsprt,
		logger:     logging.GetLogger("client"),
		accessKey:  config.AccessKey,
	}

	c.mu.Lock()
	err := c.establishSession()
	c.mu.Unlock()
	if err != nil {
		trnsprt.Close()
		return nil, err
	}
	return c, nil
}

// --------------------------------------------------------------------------
// Session Management
// --------------------------------------------------------------------------

// SetKey changes the access key for this connection.
func (c *Client) SetKey(accessKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.invoke(common.NewSetKeyRequest(accessKey)); err != nil {
		return err
	}
	c.accessKey = accessKey
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Database Lifecycle Operations
// --------------------------------------------------------------------------

// CreateDB creates a database, a nil settings pointer applies the server
// defaults. The client's access key becomes its first admin.
func (c *Client) CreateDB(name string, settings *db.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.invoke(common.NewCreateDBRequest(name, settings))
	return err
}

// DeleteDB removes a database. Requires the admin tier.
func (c *Client) DeleteDB(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.invoke(common.NewDeleteDBRequest(name))
	return err
}

// --------------------------------------------------------------------------
// Data Operations
// --------------------------------------------------------------------------

// Read returns the payload stored at location.
func (c *Client) Read(name, location string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewReadRequest(name, location))
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// Write stores data at location. It returns the previous payload and
// whether the location existed before.
func (c *Client) Write(name, location, data string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewWriteRequest(name, location, data))
	if err != nil {
		return "", false, err
	}
	return resp.Data, resp.Ok, nil
}

// DeleteData removes a location and returns the payload it held.
func (c *Client) DeleteData(name, location string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewDeleteDataRequest(name, location))
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// --------------------------------------------------------------------------
// Listing Operations
// --------------------------------------------------------------------------

// ListDatabases returns the names of all databases on the server.
func (c *Client) ListDatabases() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewListDBRequest())
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// ListContents returns the full location-to-payload map of a database.
func (c *Client) ListContents(name string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewListContentsRequest(name))
	if err != nil {
		return nil, err
	}
	return resp.Contents, nil
}

// --------------------------------------------------------------------------
// Access Management Operations
// --------------------------------------------------------------------------

// GetSettings returns the settings of a database. Requires the admin tier.
func (c *Client) GetSettings(name string) (db.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewGetSettingsRequest(name))
	if err != nil {
		return db.Settings{}, err
	}
	if resp.Settings == nil {
		return db.Settings{}, errors.New("server response is missing settings")
	}
	return *resp.Settings, nil
}

// ChangeSettings replaces the settings of a database. Requires the admin
// tier.
func (c *Client) ChangeSettings(name string, settings db.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.invoke(common.NewSetSettingsRequest(name, settings))
	return err
}

// GetRole reports the role the client's access key resolves to.
func (c *Client) GetRole(name string) (db.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.invoke(common.NewGetRoleRequest(name))
	if err != nil {
		return db.RoleOther, err
	}
	return db.ParseRole(resp.Role)
}

// AddUser adds a key to the user list of a database.
func (c *Client) AddUser(name, userKey string) error {
	return c.access(common.MsgTAddUser, name, userKey)
}

// RemoveUser removes a key from the user list of a database.
func (c *Client) RemoveUser(name, userKey string) error {
	return c.access(common.MsgTRemoveUser, name, userKey)
}

// AddAdmin adds a key to the admin list of a database.
func (c *Client) AddAdmin(name, adminKey string) error {
	return c.access(common.MsgTAddAdmin, name, adminKey)
}

// RemoveAdmin removes a key from the admin list of a database.
func (c *Client) RemoveAdmin(name, adminKey string) error {
	return c.access(common.MsgTRemoveAdmin, name, adminKey)
}

func (c *Client) access(msgType common.MessageType, name, targetKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.invoke(common.NewAccessRequest(msgType, name, targetKey))
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invoke sends one request and decodes the reply, retrying over a fresh
// connection when the transport fails. After a reconnect the session state
// is replayed before the request is retried. Callers must hold c.mu.
func (c *Client) invoke(msg *common.Message) (*common.Message, error) {
	maxAttempts := c.config.RetryCount
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	backoff := 50 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2

			if err := c.transport.Reconnect(); err != nil {
				lastErr = err
				continue
			}
			if err := c.establishSession(); err != nil {
				lastErr = err
				continue
			}
		}

		resp, err := c.send(msg)
		if err == nil {
			return resp, nil
		}

		// engine errors are authoritative, only transport failures
		// warrant a retry
		if registry.CodeOf(err) != registry.CodeUnknown {
			return nil, err
		}
		lastErr = err
		c.logger.Debugf("request attempt %d/%d failed: %v", attempt+1, maxAttempts, err)
	}

	return nil, errors.Wrapf(lastErr, "request failed after %d attempts", maxAttempts)
}

// send performs one request/response exchange, sealing and opening the
// encryption envelope when the session is encrypted.
func (c *Client) send(msg *common.Message) (*common.Message, error) {
	data, err := c.serializer.Serialize(*msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize request")
	}

	if c.encrypted {
		ciphertext, err := encryption.Encrypt(c.serverPub, data)
		if err != nil {
			return nil, err
		}
		data, err = c.serializer.Serialize(*common.NewEncryptedMessage(ciphertext))
		if err != nil {
			return nil, errors.Wrap(err, "failed to serialize request")
		}
	}

	respData, err := c.transport.Send(data)
	if err != nil {
		return nil, err
	}

	var resp common.Message
	if err := c.serializer.Deserialize(respData, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize response")
	}

	if resp.MsgType == common.MsgTEncrypted {
		plaintext, err := c.clientKeys.Decrypt(resp.Bytes)
		if err != nil {
			return nil, err
		}
		if err := c.serializer.Deserialize(plaintext, &resp); err != nil {
			return nil, errors.Wrap(err, "failed to deserialize response")
		}
	}

	if resp.MsgType == common.MsgTError {
		return nil, registry.NewError(registry.ParseCode(resp.ErrCode), "%s", resp.Err)
	}
	return &resp, nil
}

// establishSession replays the connection-scoped state on a fresh
// connection: the encryption handshake first, then the access key.
// Callers must hold c.mu.
func (c *Client) establishSession() error {
	c.encrypted = false
	c.serverPub = nil

	if c.config.Encrypt {
		if err := c.setupEncryption(); err != nil {
			return err
		}
	}

	if c.accessKey != "" {
		if _, err := c.send(common.NewSetKeyRequest(c.accessKey)); err != nil {
			return err
		}
	}
	return nil
}

// setupEncryption performs the key exchange: fetch the server's public key,
// register our own, then start sealing every request.
func (c *Client) setupEncryption() error {
	resp, err := c.send(common.NewSetupEncryptionRequest())
	if err != nil {
		return errors.Wrap(err, "encryption handshake failed")
	}
	serverPub, err := encryption.ParsePublicKeyDER(resp.Bytes)
	if err != nil {
		return err
	}

	if c.clientKeys == nil {
		keys, err := encryption.NewKeyPair()
		if err != nil {
			return err
		}
		c.clientKeys = keys
	}
	der, err := c.clientKeys.PublicKeyDER()
	if err != nil {
		return err
	}
	if _, err := c.send(common.NewPubKeyRequest(der)); err != nil {
		return errors.Wrap(err, "encryption handshake failed")
	}

	c.serverPub = serverPub
	c.encrypted = true
	c.logger.Debug("encrypted session established")
	return nil
}
