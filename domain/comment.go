package domain

import "time"

// Comment is a note attached to exactly one task.
type Comment struct {
	ID         string    `json:"_id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName,omitempty"`
	AuthorID   string    `json:"authorId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CanDeleteComment reports whether userID may remove c from a task on b.
// Board creators may remove any comment, everyone else only their own.
func CanDeleteComment(b Board, c Comment, userID string) bool {
	if userID == "" {
		return false
	}
	return b.CreatedBy == userID || c.AuthorID == userID
}
