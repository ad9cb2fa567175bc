package models

import "time"

// SubscribersKey is the fixed storage key of the subscriber list.
const SubscribersKey = "newsletterEmails"

// Broadcast is a newsletter message addressed to every subscriber.
type Broadcast struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Recipients []string  `json:"recipients"`
	CreatedAt  time.Time `json:"created_at"`
}
