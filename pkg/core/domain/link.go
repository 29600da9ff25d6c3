package domain

import "time"

// Link represents a shortened URL
type Link struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	TargetURL string    `json:"target_url"`
	CreatedAt time.Time `json:"created_at"`
}
