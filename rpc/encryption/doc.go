// Package encryption implements the optional encrypted channel between
// client and server. Both sides generate an RSA key pair and exchange
// DER-encoded public keys over the plain connection, after which every
// message travels OAEP-encrypted for the receiver's key. Payloads larger
// than one RSA block are chunked transparently.
package encryption
