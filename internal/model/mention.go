package model

import "time"

// MentionNotification is the payload of a "mention:new" event. It is built
// once per comment and sent to every mentioned user; nothing about it is
// persisted.
type MentionNotification struct {
	PhotoID  string         `json:"photoId"`
	FileName string         `json:"fileName"`
	DateTime time.Time      `json:"dateTime"`
	Owner    UserSummary    `json:"owner"`
	Index    int            `json:"index"`
	Comment  MentionComment `json:"comment"`
}

// MentionComment describes the comment that triggered a notification.
type MentionComment struct {
	ID       string      `json:"id"`
	Text     string      `json:"comment"`
	DateTime time.Time   `json:"dateTime"`
	User     UserSummary `json:"user"`
}
