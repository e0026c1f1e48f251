package domain

import "time"

type InboundMessage struct {
	Channel   string
	ChatID    string
	SenderID  string
	Content   string
	Timestamp time.Time
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Format  string // text | markdown
	// Final marks the last outbound message for an inbound turn. Voice
	// sessions synthesize audio only for final replies.
	Final bool
}
