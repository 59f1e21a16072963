package encryption

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"

	"github.com/pkg/errors"
)

const (
	// KeyBits is the RSA modulus size used by both server and client.
	KeyBits = 2048

	keyBytes = KeyBits / 8

	// encryptChunkSize is the largest plaintext block OAEP with SHA-256
	// can seal with a 2048-bit key: 256 - 2*32 - 2.
	encryptChunkSize = keyBytes - 2*sha256.Size - 2

	// decryptChunkSize is the fixed ciphertext block size.
	decryptChunkSize = keyBytes
)

// KeyPair holds one side's RSA key pair plus, once the handshake is done,
// the peer's public key.
type KeyPair struct {
	private *rsa.PrivateKey
}

// NewKeyPair generates a fresh RSA key pair.
func NewKeyPair() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate RSA key pair")
	}
	return &KeyPair{private: key}, nil
}

// PublicKeyDER returns the public key in DER-encoded PKIX form, the shape
// both sides exchange during the handshake.
func (k *KeyPair) PublicKeyDER() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&k.private.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode public key")
	}
	return der, nil
}

// ParsePublicKeyDER parses a DER-encoded PKIX public key received from the
// peer.
func ParsePublicKeyDER(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse public key")
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("peer key is not an RSA public key")
	}
	return pub, nil
}

// Encrypt seals plaintext of any length for the given public key. RSA can
// only seal one modulus-sized block at a time, so the plaintext is split
// into chunks and the ciphertext is their concatenation.
func Encrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	var out []byte
	for len(plaintext) > 0 {
		n := len(plaintext)
		if n > encryptChunkSize {
			n = encryptChunkSize
		}
		block, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext[:n], nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encrypt message")
		}
		out = append(out, block...)
		plaintext = plaintext[n:]
	}
	return out, nil
}

// Decrypt opens a ciphertext produced by Encrypt with the peer's copy of
// our public key.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%decryptChunkSize != 0 {
		return nil, errors.Errorf("ciphertext length %d is not a multiple of %d", len(ciphertext), decryptChunkSize)
	}

	var out []byte
	for len(ciphertext) > 0 {
		block, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.private, ciphertext[:decryptChunkSize], nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decrypt message")
		}
		out = append(out, block...)
		ciphertext = ciphertext[decryptChunkSize:]
	}
	return out, nil
}
