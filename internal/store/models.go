package store

import (
	"database/sql"
	"time"
)

type Admin struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	LastLoginAt  sql.NullTime `json:"-"`
}

type Post struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Excerpt     string       `json:"excerpt"`
	Content     string       `json:"content"`
	Format      string       `json:"format"`
	Section     string       `json:"section"`
	Status      string       `json:"status"`
	Meta        string       `json:"meta"`
	PublishedAt sql.NullTime `json:"published_at"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type Subscriber struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	UnsubscribeToken string    `json:"-"`
	IsSubscribed     bool      `json:"is_subscribed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
