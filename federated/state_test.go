package federated

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateManager(ttl time.Duration) *EncryptedStateManager {
	return NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
		ttl,
	)
}

func TestStateManager_EncryptDecrypt(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	state := &FlowState{
		Provider:     "google",
		RequestID:    "attempt-1",
		CallbackPort: 53181,
		RedirectURL:  "/dashboard",
	}

	encoded, err := sm.Encode(state)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, state.Provider, decoded.Provider)
	assert.Equal(t, state.RequestID, decoded.RequestID)
	assert.Equal(t, state.CallbackPort, decoded.CallbackPort)
	assert.Equal(t, state.RedirectURL, decoded.RedirectURL)
	assert.NotEmpty(t, decoded.Nonce)
	assert.NotZero(t, decoded.ExpiresAt)
}

func TestStateManager_ExpiredState(t *testing.T) {
	sm := newTestStateManager(-1 * time.Minute)

	state := &FlowState{Provider: "google", RequestID: "attempt-1"}
	encoded, err := sm.Encode(state)
	require.NoError(t, err)

	_, err = sm.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateManager_TamperedState(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&FlowState{Provider: "google", RequestID: "attempt-1"})
	require.NoError(t, err)

	tampered := []byte(encoded)
	tampered[len(tampered)/2] ^= 1

	_, err = sm.Decode(string(tampered))
	assert.Error(t, err)
}

func TestStateManager_WrongKeysRejected(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)
	other := NewEncryptedStateManager(
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		10*time.Minute,
	)

	encoded, err := sm.Encode(&FlowState{Provider: "google", RequestID: "attempt-1"})
	require.NoError(t, err)

	_, err = other.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManager_RejectsNilState(t *testing.T) {
	sm := newTestStateManager(10 * time.Minute)

	_, err := sm.Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}
