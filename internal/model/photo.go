package model

import "time"

// Photo is an uploaded image owned by exactly one user.
//
// A photo's position among its owner's photos (the "index" used by the
// /photosOfUser/{id}/{index} route and mention notifications) is never stored
// here. It is derived from insertion order every time it is needed, so it
// cannot drift when photos are added or removed.
type Photo struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	FileName string    `json:"fileName"`
	DateTime time.Time `json:"dateTime"`
	Comments []Comment `json:"comments"`
}

// Comment is a piece of text attached to a photo.
// Mentions holds the deduplicated ids of mentioned users in the order they
// were first given.
type Comment struct {
	ID       string    `json:"id"`
	PhotoID  string    `json:"-"`
	UserID   string    `json:"userId"`
	Text     string    `json:"comment"`
	DateTime time.Time `json:"dateTime"`
	Mentions []string  `json:"mentions"`
}

// Favorite links a user to a photo they starred. At most one per pair.
type Favorite struct {
	UserID   string    `json:"userId"`
	PhotoID  string    `json:"photoId"`
	DateTime time.Time `json:"dateTime"`
}

// CommentView is a comment as returned to clients: the author reference is
// resolved to a UserSummary.
type CommentView struct {
	ID       string      `json:"id"`
	Text     string      `json:"comment"`
	DateTime time.Time   `json:"dateTime"`
	User     UserSummary `json:"user"`
	Mentions []string    `json:"mentions"`
}

// PhotoView is a photo with its comments reshaped into CommentViews.
type PhotoView struct {
	ID       string        `json:"id"`
	UserID   string        `json:"userId"`
	FileName string        `json:"fileName"`
	DateTime time.Time     `json:"dateTime"`
	Comments []CommentView `json:"comments"`
}

// UserCommentsPhoto is one entry of GET /user/{id}/comments: a photo carrying
// only the comments written by that user, plus the photo's index within its
// owner's collection so the client can link to it.
type UserCommentsPhoto struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	FileName string    `json:"fileName"`
	DateTime time.Time `json:"dateTime"`
	Index    int       `json:"index"`
	Comments []Comment `json:"comments"`
}
