package models

import (
	"time"
)

// Message is a single archived chat message. IDs are unique and grow
// with time, so they double as the pagination cursor.
type Message struct {
	ID       int64      `json:"id"`
	Type     string     `json:"type"`
	Date     time.Time  `json:"date"`
	EditDate *time.Time `json:"edit_date,omitempty"`
	Content  string     `json:"content"`
	ReplyTo  int64      `json:"reply_to,omitempty"`
	User     User       `json:"user"`
	Media    *Media     `json:"media,omitempty"`
}

// HasMedia reports whether the message carries a media reference with a stored file
func (m Message) HasMedia() bool {
	return m.Media != nil && m.Media.URL != ""
}

// User is the author of a message
type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Tags      []string `json:"tags,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
}

// DisplayName returns the user's full name, or the username when no name is set
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Media is an attachment reference. URL is relative to the media directory.
type Media struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       string `json:"thumb"`
}
