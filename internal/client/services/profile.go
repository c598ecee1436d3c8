// Package services is the surface the page calls into: sign an attendance,
// create a session, manage the local profile. Online actions go straight to
// the server and surface failures; offline actions land in the pending
// queue for the agent to drain later.
package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/wesigned/wesigned/internal/client/models"
	"github.com/wesigned/wesigned/internal/client/store"
	"github.com/wesigned/wesigned/internal/cryptox"
)

// profileKey is the fixed record key of the single signed-in identity.
const profileKey = 1

// profileSalt is the key-derivation salt; the secret is the per-device id.
var profileSalt = []byte("wesigned/profile/v1")

type ProfileService struct {
	store *store.Store
}

func NewProfileService(s *store.Store) *ProfileService {
	return &ProfileService{store: s}
}

// Save stores the signed-in identity. The server-side user id is sealed
// with a key derived from the device id, which is generated on first save
// and kept stable afterwards.
func (s *ProfileService) Save(ctx context.Context, p models.UserProfile, userID string) error {
	if p.DeviceID == "" {
		if existing, err := s.Get(ctx); err == nil && existing.DeviceID != "" {
			p.DeviceID = existing.DeviceID
		} else {
			p.DeviceID = uuid.NewString()
		}
	}

	key := cryptox.DeriveKey([]byte(p.DeviceID), profileSalt)
	ciphertext, nonce, err := cryptox.Seal([]byte(userID), key)
	if err != nil {
		return fmt.Errorf("failed to seal user id: %w", err)
	}
	p.UserID = base64.StdEncoding.EncodeToString(ciphertext)
	p.UserIDNonce = base64.StdEncoding.EncodeToString(nonce)

	if _, err := s.store.Put(ctx, store.CollectionUser, profileKey, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Get returns the stored profile (with the user id still sealed).
func (s *ProfileService) Get(ctx context.Context) (*models.UserProfile, error) {
	rec, err := s.store.GetByKey(ctx, store.CollectionUser, profileKey)
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := rec.Decode(&p); err != nil {
		return nil, fmt.Errorf("corrupt profile record: %w", err)
	}
	return &p, nil
}

// StudentID returns the plain server-side user id, unsealing it with the
// device-derived key.
func (s *ProfileService) StudentID(ctx context.Context) (string, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(p.UserID)
	if err != nil {
		return "", fmt.Errorf("corrupt sealed user id: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(p.UserIDNonce)
	if err != nil {
		return "", fmt.Errorf("corrupt user id nonce: %w", err)
	}

	key := cryptox.DeriveKey([]byte(p.DeviceID), profileSalt)
	plain, err := cryptox.Open(ciphertext, nonce, key)
	if err != nil {
		return "", fmt.Errorf("failed to unseal user id: %w", err)
	}
	return string(plain), nil
}
