package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc persists refreshed OAuth tokens back to the user record
type TokenUpdateFunc func(token *oauth2.Token) error

// InboxMessage is a normalized message fetched from the mail provider.
// It is read-only input to the sync engine and never persisted as-is.
type InboxMessage struct {
	RawID      string    `json:"raw_id"`
	Sender     string    `json:"sender"` // raw "From" header, any casing/format
	Subject    string    `json:"subject"`
	Preview    string    `json:"preview"`
	Body       string    `json:"body"` // best-effort plain text, may be empty
	ReceivedAt time.Time `json:"received_at"`
}

// MailSource searches a remote mailbox for messages from the given senders
// within the lookback window. Implementations: Gmail API, IMAP.
type MailSource interface {
	Search(ctx context.Context, accessToken, refreshToken string, terms []string, lookbackMonths int, onTokenRefresh TokenUpdateFunc) ([]*InboxMessage, error)
}

// Email is the durable record of one processed school email.
// Exactly one row exists per (user, subject, received_at) triple; repeated
// sync passes over the same window must not create duplicates.
type Email struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index:idx_email_dedup;not null"`
	Subject     string    `json:"subject" gorm:"index:idx_email_dedup"`
	Sender      string    `json:"sender"`
	Preview     string    `json:"preview"`
	Body        string    `json:"body,omitempty"`
	ReceivedAt  time.Time `json:"received_at" gorm:"index:idx_email_dedup"`
	IsProcessed bool      `json:"is_processed" gorm:"default:false"`
	ChildID     string    `json:"child_id,omitempty" gorm:"index"`
	Category    Category  `json:"category,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	// Provenance of the child attribution (rule-exact, ai-only, ...);
	// kept so fallback-attributed emails can be surfaced for review.
	AttributionSource string    `json:"attribution_source,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
