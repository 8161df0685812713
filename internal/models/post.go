package models

import "time"

type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostPublished PostStatus = "PUBLISHED"
)

// Post is a piece of authored content. Edits never overwrite: each one adds
// a version, and Versions lists them newest first.
type Post struct {
	ID        string        `json:"id"`
	AuthorID  string        `json:"authorId"`
	Status    PostStatus    `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Versions  []PostVersion `json:"versions"`
}

type PostVersion struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Content is the text of the newest version.
func (p *Post) Content() string {
	if len(p.Versions) == 0 {
		return ""
	}
	return p.Versions[0].Content
}
