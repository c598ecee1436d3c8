package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("device-1234")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(secret, salt)
	key2 := DeriveKey(secret, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	assert.Len(t, key1, 32)
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	secret := []byte("device-1234")

	key1 := DeriveKey(secret, []byte("salt-1"))
	key2 := DeriveKey(secret, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("device-1234"), []byte("salt"))
	plaintext := []byte("user-42")

	ciphertext, nonce, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.Len(t, nonce, 12)

	opened, err := Open(ciphertext, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	key := DeriveKey([]byte("device-1234"), []byte("salt"))

	_, nonce1, err := Seal([]byte("x"), key)
	require.NoError(t, err)
	_, nonce2, err := Seal([]byte("x"), key)
	require.NoError(t, err)

	assert.NotEqual(t, nonce1, nonce2)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	key := DeriveKey([]byte("device-1234"), []byte("salt"))
	other := DeriveKey([]byte("device-9999"), []byte("salt"))

	ciphertext, nonce, err := Seal([]byte("user-42"), key)
	require.NoError(t, err)

	_, err = Open(ciphertext, nonce, other)
	require.Error(t, err)
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	key := DeriveKey([]byte("device-1234"), []byte("salt"))

	ciphertext, nonce, err := Seal([]byte("user-42"), key)
	require.NoError(t, err)
	ciphertext[0] ^= 0xff

	_, err = Open(ciphertext, nonce, key)
	require.Error(t, err)
}
