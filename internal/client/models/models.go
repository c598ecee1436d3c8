// Package models defines the record types stored in the local collections.
// Every type here must be standalone: a queued payload carries everything
// needed to replay the action against the server.
package models

import (
	"encoding/json"
	"strings"
)

// Card statuses. A card is "online" when the server already confirmed the
// action and "offline" when it only exists locally, awaiting sync.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// SignIn is a durable record of one student's sign-in action.
// SignedAt is epoch milliseconds, Timestamp the same instant as RFC 3339.
// ClientRef is assigned once when the record is created and never
// regenerated, so the server can deduplicate resubmitted batches.
type SignIn struct {
	SessionID   string `json:"sessionId"`
	RegNo       string `json:"regNo"`
	SessionName string `json:"sessionName"`
	FullName    string `json:"fullName"`
	StudentID   string `json:"studentId"`
	ClientRef   string `json:"clientRef"`
	SignedAt    int64  `json:"signedAt"`
	Timestamp   string `json:"timestamp"`
	Synced      bool   `json:"synced"`
}

// PendingAction is an entry in the pending-action queue. Payload is kept
// opaque here; the discriminator says how to interpret it.
type PendingAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SessionDraft is a session-creation payload, either submitted live or
// queued into the sessions collection while offline.
type SessionDraft struct {
	Name      string  `json:"name"`
	Duration  int     `json:"duration"`
	Unit      string  `json:"unit"`
	Range     string  `json:"range"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpecialID string  `json:"specialId,omitempty"`
	ClientRef string  `json:"clientRef"`
	CreatedAt string  `json:"createdAt"`
}

// AttendanceCard is a locally cached summary of an attendance a student
// has signed.
type AttendanceCard struct {
	Title    string `json:"title"`
	Lecturer string `json:"lecturer"`
	Date     string `json:"date"`
	Gradient string `json:"gradient"`
	Status   string `json:"status"`
}

// LecturerCard is a locally cached summary of a session a lecturer
// created or reviewed.
type LecturerCard struct {
	Title     string `json:"title"`
	Lecturer  string `json:"lecturer"`
	Date      string `json:"date"`
	SpecialID string `json:"specialId"`
	Status    string `json:"status"`
}

// UserProfile is the single signed-in identity. UserID holds the
// AES-GCM-sealed server-side user id (base64), with its nonce alongside;
// DeviceID is the key-derivation secret, generated once per device.
type UserProfile struct {
	Firstname   string `json:"firstname"`
	Middlename  string `json:"middlename"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	UserID      string `json:"userId"`
	UserIDNonce string `json:"userIdNonce"`
	DeviceID    string `json:"deviceId"`
}

// DisplayName renders "Surname Middlename Firstname", skipping an empty
// middle name.
func (p *UserProfile) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Surname, p.Middlename, p.Firstname} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
