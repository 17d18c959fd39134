package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidProof = errors.New("invalid session proof")
	ErrExpiredProof = errors.New("session proof has expired")
)

// proofClaims is the payload of a session-proof token.
type proofClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ProofService mints short-lived tokens proving that the device-level
// identity check succeeded for a user. The API layer attaches one to the
// order placement it gates.
type ProofService struct {
	secretKey []byte
	expiry    time.Duration
}

func NewProofService(secretKey string, expiry time.Duration) *ProofService {
	return &ProofService{
		secretKey: []byte(secretKey),
		expiry:    expiry,
	}
}

// Issue creates a new session proof for the user.
func (s *ProofService) Issue(userID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.expiry)

	claims := proofClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Verify validates a session proof and returns the user it was issued for.
func (s *ProofService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &proofClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return "", ErrInvalidProof
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredProof
		}
		return "", ErrInvalidProof
	}

	claims, ok := token.Claims.(*proofClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidProof
	}
	return claims.UserID, nil
}
