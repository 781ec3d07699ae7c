package crypto_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyphertext/internal/crypto"
	domaintypes "cyphertext/internal/domain/types"
)

func TestExportImportPublicKey(t *testing.T) {
	kp, err := crypto.GenerateIdentityKeyPair()
	require.NoError(t, err)

	material, err := crypto.ExportPublicKey(kp.Public)
	require.NoError(t, err)

	pub, err := crypto.ImportPublicKey(material)
	require.NoError(t, err)
	assert.True(t, pub.Equal(kp.Public))
}

func TestImportPublicKey_Rejects(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	edDER, err := x509.MarshalPKIXPublicKey(edPub)
	require.NoError(t, err)

	cases := map[string]string{
		"not base64":     "%%%",
		"not DER":        crypto.B64([]byte("definitely not a key")),
		"wrong key type": crypto.B64(edDER),
		"empty":          "",
	}
	for name, material := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := crypto.ImportPublicKey(material)
			assert.ErrorIs(t, err, domaintypes.ErrKeyFormat)
		})
	}
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateIdentityKeyPair()
	require.NoError(t, err)

	der, err := crypto.MarshalPrivateKey(kp.Private)
	require.NoError(t, err)

	restored, err := crypto.KeyPairFromIdentity(domaintypes.Identity{PrivateKey: der})
	require.NoError(t, err)
	assert.True(t, restored.Private.Equal(kp.Private))
	assert.True(t, restored.Public.Equal(kp.Public))
}

func TestFingerprintPublicKey(t *testing.T) {
	kp, err := crypto.GenerateIdentityKeyPair()
	require.NoError(t, err)
	material, err := crypto.ExportPublicKey(kp.Public)
	require.NoError(t, err)

	fp, err := crypto.FingerprintPublicKey(material)
	require.NoError(t, err)
	assert.Len(t, fp.String(), 20)
}
