package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/snapshop/internal/docstore"
)

// Profile is the users/{userId} document. CredentialHash holds the user's
// enrolled device credential (bcrypt), empty when none is enrolled.
type Profile struct {
	Name           string `json:"name"`
	MobileNumber   string `json:"mobileNumber"`
	Age            int    `json:"age"`
	Address        string `json:"address"`
	IsNewUser      bool   `json:"isNewUser"`
	CredentialHash string `json:"credentialHash,omitempty"`
}

type Service struct {
	store docstore.DocumentStore
}

func NewService(store docstore.DocumentStore) *Service {
	return &Service{store: store}
}

// Load returns the user's profile. A missing or unreadable document defaults
// to a new-user profile so onboarding can proceed.
func (s *Service) Load(ctx context.Context, userID string) Profile {
	raw, ok, err := s.store.Get(ctx, docstore.Users, userID)
	if err != nil {
		log.Printf("[Profile] Failed to load profile for %s: %v", userID, err)
		return Profile{IsNewUser: true}
	}
	if !ok {
		return Profile{IsNewUser: true}
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("[Profile] Malformed profile document for %s: %v", userID, err)
		return Profile{IsNewUser: true}
	}
	return p
}

// Save overwrites the profile document.
func (s *Service) Save(ctx context.Context, userID string, p Profile) error {
	if err := s.store.Set(ctx, docstore.Users, userID, userID, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
