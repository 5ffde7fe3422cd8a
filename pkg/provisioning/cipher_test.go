package provisioning

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlink-protocol/devlink-go/pkg/wire"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, kp.PublicKey(), KeySize)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(kp.PublicKey(), other.PublicKey()),
		"two keypairs must not collide")
}

func TestEnvelope_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	plaintext := []byte("identity key material for the linking device")
	env, err := EncryptEnvelope(kp.PublicKey(), plaintext)
	require.NoError(t, err)
	assert.Len(t, env.PublicKey, KeySize)
	assert.NotContains(t, string(env.Body), string(plaintext))

	got, err := DecryptEnvelope(kp, env)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEnvelope_RoundTripEmptyPlaintext(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	env, err := EncryptEnvelope(kp.PublicKey(), nil)
	require.NoError(t, err)

	got, err := DecryptEnvelope(kp, env)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncryptEnvelope_BadKeySize(t *testing.T) {
	_, err := EncryptEnvelope([]byte{1, 2, 3}, []byte("hello"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptEnvelope_BadKeySize(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = DecryptEnvelope(kp, &wire.ProvisioningEnvelope{
		PublicKey: []byte{1, 2, 3},
		Body:      make([]byte, 128),
	})
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptEnvelope_TooShort(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = DecryptEnvelope(kp, &wire.ProvisioningEnvelope{
		PublicKey: make([]byte, KeySize),
		Body:      make([]byte, 10),
	})
	assert.ErrorIs(t, err, ErrEnvelopeTooShort)
}

func TestDecryptEnvelope_TamperedBody(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	env, err := EncryptEnvelope(kp.PublicKey(), []byte("payload"))
	require.NoError(t, err)

	env.Body[1+8] ^= 0x01
	_, err = DecryptEnvelope(kp, env)
	assert.ErrorIs(t, err, ErrBadMAC)
}

func TestDecryptEnvelope_TamperedMAC(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	env, err := EncryptEnvelope(kp.PublicKey(), []byte("payload"))
	require.NoError(t, err)

	env.Body[len(env.Body)-1] ^= 0x01
	_, err = DecryptEnvelope(kp, env)
	assert.ErrorIs(t, err, ErrBadMAC)
}

func TestDecryptEnvelope_WrongRecipient(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	env, err := EncryptEnvelope(kp.PublicKey(), []byte("payload"))
	require.NoError(t, err)

	_, err = DecryptEnvelope(other, env)
	assert.ErrorIs(t, err, ErrBadMAC)
}

func TestPKCS7_RoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 15, 16, 17, 31, 32, 100} {
		data := bytes.Repeat([]byte{0xab}, size)
		padded := padPKCS7(data, 16)
		require.Zero(t, len(padded)%16, "size %d", size)

		got, err := unpadPKCS7(padded, 16)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, data, got, "size %d", size)
	}
}

func TestPKCS7_InvalidPadding(t *testing.T) {
	cases := map[string][]byte{
		"empty":           {},
		"not block sized": bytes.Repeat([]byte{1}, 15),
		"zero pad byte":   append(bytes.Repeat([]byte{7}, 15), 0),
		"pad too large":   append(bytes.Repeat([]byte{7}, 15), 17),
		"inconsistent":    append(bytes.Repeat([]byte{2}, 14), 3, 2),
	}
	for name, data := range cases {
		_, err := unpadPKCS7(data, 16)
		assert.ErrorIs(t, err, ErrBadPadding, name)
	}
}
