package models

// Channel represents a Slack conversation returned by conversations.list
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
}

// Pin represents one entry of pins.list. File pins carry no message.
type Pin struct {
	Type    string   `json:"type"`
	Created int64    `json:"created"`
	Message *Message `json:"message"`
}

// Message is the pinned message body
type Message struct {
	Permalink string `json:"permalink"`
	Text      string `json:"text"`
	Timestamp string `json:"ts"`
	User      string `json:"user"`
}

// User represents a workspace member from users.list
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Deleted  bool   `json:"deleted"`
}
