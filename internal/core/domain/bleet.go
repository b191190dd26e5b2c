package domain

import "time"

// Bleet is a post on the in-game social feed.
type Bleet struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	ImageID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
