package provisioning

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/devlink-protocol/devlink-go/pkg/wire"
)

// Envelope cipher constants.
const (
	// EnvelopeVersion is the envelope body format version.
	EnvelopeVersion = 1

	// KeySize is the Curve25519 key size in bytes.
	KeySize = 32

	// macSize is the HMAC-SHA256 tag size in bytes.
	macSize = 32

	// kdfInfo is the HKDF info string binding derived keys to this use.
	kdfInfo = "DEVLINK Provisioning Message"
)

// Envelope cipher errors.
var (
	ErrInvalidKeySize   = errors.New("invalid public key size")
	ErrEnvelopeTooShort = errors.New("envelope body too short")
	ErrBadVersion       = errors.New("unsupported envelope version")
	ErrBadMAC           = errors.New("envelope MAC verification failed")
	ErrBadPadding       = errors.New("invalid envelope padding")
)

// KeyPair is the ephemeral Curve25519 keypair a linking client generates
// for one provisioning attempt. The public key travels in the provisioning
// URI; the private key never leaves the device.
type KeyPair struct {
	publicKey  []byte
	privateKey []byte
}

// GenerateKeyPair creates a fresh ephemeral keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	return &KeyPair{publicKey: pub, privateKey: priv}, nil
}

// PublicKey returns the public key bytes.
func (kp *KeyPair) PublicKey() []byte {
	return kp.publicKey
}

// EncryptEnvelope encrypts a provisioning message to the recipient's
// ephemeral public key. Used by the primary device.
//
// Body layout: version(1) || iv(16) || ciphertext || mac(32), where the
// MAC covers everything before it.
func EncryptEnvelope(recipientPub, plaintext []byte) (*wire.ProvisioningEnvelope, error) {
	if len(recipientPub) != KeySize {
		return nil, ErrInvalidKeySize
	}

	eph, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(eph.privateKey, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	cipherKey, macKey, err := deriveKeys(shared)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return nil, err
	}
	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	body := make([]byte, 0, 1+len(iv)+len(ciphertext)+macSize)
	body = append(body, EnvelopeVersion)
	body = append(body, iv...)
	body = append(body, ciphertext...)

	mac := hmac.New(sha256.New, macKey)
	mac.Write(body)
	body = mac.Sum(body)

	return &wire.ProvisioningEnvelope{
		PublicKey: eph.publicKey,
		Body:      body,
	}, nil
}

// DecryptEnvelope decrypts an envelope with the client's ephemeral keypair.
// Used by the linking device after the envelope arrives over the socket.
func DecryptEnvelope(kp *KeyPair, env *wire.ProvisioningEnvelope) ([]byte, error) {
	if len(env.PublicKey) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(env.Body) < 1+aes.BlockSize+aes.BlockSize+macSize {
		return nil, ErrEnvelopeTooShort
	}

	shared, err := curve25519.X25519(kp.privateKey, env.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	cipherKey, macKey, err := deriveKeys(shared)
	if err != nil {
		return nil, err
	}

	signed := env.Body[:len(env.Body)-macSize]
	theirMAC := env.Body[len(env.Body)-macSize:]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(signed)
	if !hmac.Equal(mac.Sum(nil), theirMAC) {
		return nil, ErrBadMAC
	}

	if signed[0] != EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, signed[0])
	}

	iv := signed[1 : 1+aes.BlockSize]
	ciphertext := signed[1+aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrEnvelopeTooShort
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpadPKCS7(plaintext, aes.BlockSize)
}

// deriveKeys expands the shared secret into cipher and MAC keys.
func deriveKeys(shared []byte) (cipherKey, macKey []byte, err error) {
	kdf := hkdf.New(sha256.New, shared, nil, []byte(kdfInfo))
	keys := make([]byte, 64)
	if _, err := io.ReadFull(kdf, keys); err != nil {
		return nil, nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return keys[:32], keys[32:], nil
}

// padPKCS7 pads data to a multiple of blockSize.
func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpadPKCS7 validates and strips PKCS#7 padding.
func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}
