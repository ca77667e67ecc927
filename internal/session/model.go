// Package session defines the Session record and its lifecycle, the
// data model of spec.md §3.
package session

import (
	"time"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// Status is one of the five lifecycle states a Session can occupy.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s is one of the three states a session
// never leaves.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Session is the source-of-truth record for one TTS request (spec.md
// §3). Its id is opaque and client-unpredictable; callers mint it with
// a UUID at admission time.
type Session struct {
	ID         string
	ProviderID string
	VoiceID    string
	Language   string
	Text       string

	TargetFormat     audio.Format
	TargetSampleRate int

	Status        Status
	FailureReason string

	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Clone returns a value copy safe to hand to a reader without sharing
// the store's internal pointer (spec.md §4.3: "readers observe a
// consistent snapshot").
func (s *Session) Clone() Session {
	cp := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		cp.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		cp.FinishedAt = &t
	}
	return cp
}

// AudioChunk and StreamFrame live in internal/audio and internal/transport
// respectively; Session only carries the identifiers and status needed
// to drive the lifecycle.
