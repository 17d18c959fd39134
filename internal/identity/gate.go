package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrCredentialTooShort = errors.New("credential must be at least 4 characters")

const (
	bcryptCost          = 12
	minCredentialLength = 4
)

// Prompt failure codes.
const (
	CodeNoCredential  = 1
	CodeBadCredential = 2
)

// Outcome is the result of an identity prompt: success, a coded error, or a
// user cancellation. Cancellation is not an error.
type Outcome struct {
	OK       bool
	Canceled bool
	Code     int
	Message  string
	Proof    string // session-proof token, set on success
}

// Gate is the device-level identity check in front of order placement. When
// Available is false, callers proceed without prompting.
type Gate interface {
	Available() bool
	Prompt(ctx context.Context) Outcome
}

// CredentialSource asks the user for their device credential. ok=false means
// the user canceled the prompt.
type CredentialSource func(ctx context.Context) (credential string, ok bool)

// DeviceCredentialGate checks an enrolled device credential (a PIN or
// password hashed with bcrypt) and mints a session proof on success.
type DeviceCredentialGate struct {
	userID string
	hash   string
	source CredentialSource
	proofs *ProofService
}

func NewDeviceCredentialGate(userID, credentialHash string, source CredentialSource, proofs *ProofService) *DeviceCredentialGate {
	return &DeviceCredentialGate{
		userID: userID,
		hash:   credentialHash,
		source: source,
		proofs: proofs,
	}
}

// EnrollCredential hashes a device credential for storage.
func EnrollCredential(credential string) (string, error) {
	if len(credential) < minCredentialLength {
		return "", ErrCredentialTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (g *DeviceCredentialGate) Available() bool {
	return g.hash != ""
}

func (g *DeviceCredentialGate) Prompt(ctx context.Context) Outcome {
	if !g.Available() {
		return Outcome{Code: CodeNoCredential, Message: "no device credential enrolled"}
	}

	credential, ok := g.source(ctx)
	if !ok {
		return Outcome{Canceled: true}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(credential)); err != nil {
		return Outcome{Code: CodeBadCredential, Message: "credential rejected"}
	}

	proof := ""
	if g.proofs != nil {
		token, _, err := g.proofs.Issue(g.userID)
		if err != nil {
			return Outcome{Code: CodeBadCredential, Message: "failed to issue session proof"}
		}
		proof = token
	}
	return Outcome{OK: true, Proof: proof}
}

// NoGate is used when the device has no identity check at all; order
// placement proceeds ungated.
type NoGate struct{}

func (NoGate) Available() bool { return false }

func (NoGate) Prompt(ctx context.Context) Outcome { return Outcome{OK: true} }
