package tlscert_test

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ryafar/soil-moisture-server/pkg/tlscert"
)

func TestEnsureKeyPairGeneratesLoadablePair(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, tlscert.EnsureKeyPair(certPath, keyPath))

	// la coppia deve essere caricabile dal transport layer
	_, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)

	certPEM, err := os.ReadFile(certPath)
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)

	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.Equal(t, "localhost", cert.Issuer.CommonName) // self-signed
	assert.Contains(t, cert.DNSNames, "localhost")
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
	assert.Equal(t, x509.SHA256WithRSA, cert.SignatureAlgorithm)

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, 2048, pub.N.BitLen())

	validity := cert.NotAfter.Sub(cert.NotBefore)
	assert.InDelta(t, 365, validity.Hours()/24, 1.5)
}

func TestEnsureKeyPairKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.NoError(t, tlscert.EnsureKeyPair(certPath, keyPath))
	before, err := os.ReadFile(certPath)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, tlscert.EnsureKeyPair(certPath, keyPath))
	after, err := os.ReadFile(certPath)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}
