package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCredential(credential string) CredentialSource {
	return func(ctx context.Context) (string, bool) { return credential, true }
}

func canceledPrompt() CredentialSource {
	return func(ctx context.Context) (string, bool) { return "", false }
}

func newTestGate(t *testing.T, credential string, source CredentialSource) *DeviceCredentialGate {
	t.Helper()
	hash, err := EnrollCredential(credential)
	require.NoError(t, err)
	proofs := NewProofService("test-secret-key-that-is-long-enough", time.Minute)
	return NewDeviceCredentialGate("user-123", hash, source, proofs)
}

// ============================================
// EnrollCredential Tests
// ============================================

func TestEnrollCredential(t *testing.T) {
	hash, err := EnrollCredential("1234")

	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "1234", hash)
}

func TestEnrollCredential_TooShort(t *testing.T) {
	_, err := EnrollCredential("123")

	assert.ErrorIs(t, err, ErrCredentialTooShort)
}

// ============================================
// Prompt Tests
// ============================================

func TestDeviceCredentialGate_Prompt_Success(t *testing.T) {
	gate := newTestGate(t, "1234", fixedCredential("1234"))

	outcome := gate.Prompt(context.Background())

	assert.True(t, outcome.OK)
	assert.False(t, outcome.Canceled)
	assert.NotEmpty(t, outcome.Proof, "success must mint a session proof")
}

func TestDeviceCredentialGate_Prompt_WrongCredential(t *testing.T) {
	gate := newTestGate(t, "1234", fixedCredential("9999"))

	outcome := gate.Prompt(context.Background())

	assert.False(t, outcome.OK)
	assert.False(t, outcome.Canceled)
	assert.Equal(t, CodeBadCredential, outcome.Code)
	assert.Empty(t, outcome.Proof)
}

func TestDeviceCredentialGate_Prompt_Canceled(t *testing.T) {
	gate := newTestGate(t, "1234", canceledPrompt())

	outcome := gate.Prompt(context.Background())

	assert.False(t, outcome.OK)
	assert.True(t, outcome.Canceled, "cancellation is not an error")
	assert.Zero(t, outcome.Code)
}

func TestDeviceCredentialGate_NoHashUnavailable(t *testing.T) {
	proofs := NewProofService("test-secret-key-that-is-long-enough", time.Minute)
	gate := NewDeviceCredentialGate("user-123", "", fixedCredential("1234"), proofs)

	assert.False(t, gate.Available())

	outcome := gate.Prompt(context.Background())
	assert.False(t, outcome.OK)
	assert.Equal(t, CodeNoCredential, outcome.Code)
}

func TestDeviceCredentialGate_ProofVerifies(t *testing.T) {
	gate := newTestGate(t, "1234", fixedCredential("1234"))

	outcome := gate.Prompt(context.Background())
	require.True(t, outcome.OK)

	proofs := NewProofService("test-secret-key-that-is-long-enough", time.Minute)
	userID, err := proofs.Verify(outcome.Proof)

	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

// ============================================
// NoGate Tests
// ============================================

func TestNoGate(t *testing.T) {
	gate := NoGate{}

	assert.False(t, gate.Available())

	outcome := gate.Prompt(context.Background())
	assert.True(t, outcome.OK, "no gate means order placement proceeds ungated")
	assert.Empty(t, outcome.Proof)
}
