// Package prefs stores per-user sensory preferences.
package prefs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// Sensitivity levels. Any other string is stored as given.
const (
	Low    = "low"
	Medium = "medium"
	High   = "high"
)

var (
	// ErrMissingUserID is returned when a record has no user_id.
	ErrMissingUserID = errors.New("prefs: user ID required")

	// ErrNotFound is returned by Get for unknown users.
	ErrNotFound = errors.New("prefs: not found")
)

// Preferences is one user's profile.
type Preferences struct {
	UserID            string    `json:"user_id"`
	UserEmail         string    `json:"user_email,omitempty"`
	UserName          string    `json:"user_name,omitempty"`
	Neurodivergencies []string  `json:"neurodivergencies"`
	CrowdSensitivity  string    `json:"crowd_sensitivity"`
	SoundSensitivity  string    `json:"sound_sensitivity"`
	LightSensitivity  string    `json:"light_sensitivity"`
	TouchAvoidance    string    `json:"touch_avoidance"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Normalize trims the user ID and fills unset sensitivities with Medium.
func (p *Preferences) Normalize() error {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return ErrMissingUserID
	}
	if p.Neurodivergencies == nil {
		p.Neurodivergencies = []string{}
	}
	for _, s := range []*string{&p.CrowdSensitivity, &p.SoundSensitivity, &p.LightSensitivity, &p.TouchAvoidance} {
		if strings.TrimSpace(*s) == "" {
			*s = Medium
		}
	}
	return nil
}

// Store persists preferences.
type Store interface {
	// Get returns ErrNotFound for unknown users.
	Get(ctx context.Context, userID string) (*Preferences, error)

	// Upsert saves p. created_at of an existing record is preserved and
	// updated_at is set to now. The saved record is returned.
	Upsert(ctx context.Context, p *Preferences) (*Preferences, error)

	// List returns every record, most recently updated first.
	List(ctx context.Context) ([]*Preferences, error)

	Close() error
}

// sortNewestFirst orders by updated_at descending, then user ID.
func sortNewestFirst(list []*Preferences) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].UserID < list[j].UserID
	})
}
