package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("CHAIN_ID", "11155111")
	t.Setenv("RELAY_URL", "http://relay.local")
	t.Setenv("RPC_URL", "http://rpc.local")
	t.Setenv("EXECUTOR_URL", "http://executor.local")
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("DELEGATION_PRIVATE_KEY_FILE", "/nonexistent/key.pem")
}

func TestInitDefaults(t *testing.T) {
	setRequired(t)
	require.NoError(t, Init())

	c := Get()
	assert.Equal(t, "8080", GetPort())
	assert.Equal(t, int64(11155111), GetChainID())
	assert.Equal(t, 15*time.Second, GetRequestTimeout())
	assert.Equal(t, BackendMemory, GetLedgerBackend())
	assert.Equal(t, []byte("whsec"), GetWebhookSecret())
	assert.Equal(t, 262144, c.ScryptN)
	assert.False(t, c.Persistent())
}

func TestInitRejectsInvalidCombinations(t *testing.T) {
	cases := map[string][2]string{
		"backend":  {"LEDGER_BACKEND", "postgres"},
		"chain":    {"CHAIN_ID", "0"},
		"timeout":  {"REQUEST_TIMEOUT", "0s"},
		"rate":     {"RELAY_RATE_PER_SECOND", "0"},
		"scrypt n": {"SCRYPT_N", "1000"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])
			assert.Error(t, Init())
		})
	}
}

func TestInitMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAIN_ID", "")
	assert.Error(t, Init())
}

func TestStorePassphraseFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("LEDGER_BACKEND", "sqlite")
	t.Setenv("STORE_PASSPHRASE", "correct horse")
	require.NoError(t, Init())

	assert.True(t, Get().Persistent())
	p, err := GetStorePassphraseBytes()
	require.NoError(t, err)
	assert.Equal(t, "correct horse", string(p))
}

func TestDelegationPrivateKeyInline(t *testing.T) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)})

	setRequired(t)
	t.Setenv("DELEGATION_PRIVATE_KEY", string(pemBytes))
	require.NoError(t, Init())

	loaded, err := GetDelegationPrivateKey()
	require.NoError(t, err)
	assert.True(t, k.Equal(loaded))

	again, err := GetDelegationPrivateKey()
	require.NoError(t, err)
	assert.Same(t, loaded, again)
}
