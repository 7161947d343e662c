package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der := x509.MarshalPKCS1PrivateKey(key)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestSignVerifies(t *testing.T) {
	path := writeTestKey(t)

	s, err := Load("key-123", path)
	require.NoError(t, err)

	now := time.UnixMilli(1700000000000)
	headers, err := s.Sign("GET", "/trade-api/v2/portfolio/orders", now)
	require.NoError(t, err)

	require.Equal(t, "key-123", headers.KeyID)
	require.NotEmpty(t, headers.Signature)

	sig, err := base64.StdEncoding.DecodeString(headers.Signature)
	require.NoError(t, err)

	message := headers.Timestamp + "GET" + "/trade-api/v2/portfolio/orders"
	digest := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&s.privateKey.PublicKey, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	require.NoError(t, err)
}

func TestSignDifferentPathsDifferentSignatures(t *testing.T) {
	path := writeTestKey(t)
	s, err := Load("key-123", path)
	require.NoError(t, err)

	now := time.UnixMilli(1700000000000)
	a, err := s.Sign("GET", "/a", now)
	require.NoError(t, err)
	b, err := s.Sign("GET", "/b", now)
	require.NoError(t, err)

	require.NotEqual(t, a.Signature, b.Signature)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("key-123", filepath.Join(t.TempDir(), "missing.pem"))
	require.Error(t, err)
}
