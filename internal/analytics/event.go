// Package analytics defines the events emitted by the shortener and the
// handlers that consume them.
package analytics

import "time"

const (
	TopicLinkCreated  = "link.created"
	TopicLinkResolved = "link.resolved"
)

// LinkCreatedEvent is emitted after a link is committed.
type LinkCreatedEvent struct {
	Token     string    `json:"token"`
	LongURL   string    `json:"longUrl"`
	AccountID string    `json:"accountId"`
	Custom    bool      `json:"custom"`
	CreatedAt time.Time `json:"createdAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
}

// LinkResolvedEvent is emitted for every successful redirect.
type LinkResolvedEvent struct {
	Token      string    `json:"token"`
	ResolvedAt time.Time `json:"resolvedAt"`
}
