package provisioning

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "3f8c2a1e-9b4d-4c6f-8a2e-1d5b7c9e0f31"

func testPublicKey(t *testing.T) []byte {
	t.Helper()
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	return kp.PublicKey()
}

func TestURI_RoundTrip(t *testing.T) {
	key := testPublicKey(t)

	u, err := NewURI(testAddress, key)
	require.NoError(t, err)

	got, err := ParseURI(u.String())
	require.NoError(t, err)
	assert.Equal(t, testAddress, got.UUID)
	assert.Equal(t, key, got.PublicKey)
}

func TestURI_StringFormat(t *testing.T) {
	key := testPublicKey(t)

	u, err := NewURI(testAddress, key)
	require.NoError(t, err)

	s := u.String()
	assert.True(t, strings.HasPrefix(s, "devlink:/?"), s)
	assert.Contains(t, s, "uuid="+testAddress)
	assert.Contains(t, s, "pub_key=")
}

func TestNewURI_InvalidAddress(t *testing.T) {
	_, err := NewURI("not-a-uuid", testPublicKey(t))
	assert.ErrorIs(t, err, ErrInvalidUUID)
}

func TestNewURI_InvalidKeyLength(t *testing.T) {
	_, err := NewURI(testAddress, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestParseURI_SchemeCaseInsensitive(t *testing.T) {
	key := testPublicKey(t)
	u, err := NewURI(testAddress, key)
	require.NoError(t, err)

	upper := "DEVLINK" + strings.TrimPrefix(u.String(), "devlink")
	got, err := ParseURI(upper)
	require.NoError(t, err)
	assert.Equal(t, testAddress, got.UUID)
}

func TestParseURI_Errors(t *testing.T) {
	key := base64.URLEncoding.EncodeToString(testPublicKey(t))

	cases := map[string]struct {
		uri  string
		want error
	}{
		"wrong scheme": {
			uri:  "https:/?uuid=" + testAddress + "&pub_key=" + key,
			want: ErrInvalidURIScheme,
		},
		"missing uuid": {
			uri:  "devlink:/?pub_key=" + key,
			want: ErrMissingUUID,
		},
		"bad uuid": {
			uri:  "devlink:/?uuid=nope&pub_key=" + key,
			want: ErrInvalidUUID,
		},
		"missing key": {
			uri:  "devlink:/?uuid=" + testAddress,
			want: ErrMissingPublicKey,
		},
		"bad base64": {
			uri:  "devlink:/?uuid=" + testAddress + "&pub_key=!!!",
			want: ErrInvalidPublicKey,
		},
		"short key": {
			uri:  "devlink:/?uuid=" + testAddress + "&pub_key=" + base64.URLEncoding.EncodeToString([]byte{1, 2, 3}),
			want: ErrInvalidPublicKey,
		},
	}

	for name, tc := range cases {
		_, err := ParseURI(tc.uri)
		assert.ErrorIs(t, err, tc.want, name)
	}
}
