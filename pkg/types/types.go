package types

import (
	"fmt"
	"time"
)

// EventKind discriminates the payload variants carried by the event log
type EventKind string

const (
	EventReply   EventKind = "reply"
	EventLike    EventKind = "like"
	EventFollow  EventKind = "follow"
	EventMention EventKind = "mention"
)

// PostCentric reports whether aggregate records for this kind carry post fields
func (k EventKind) PostCentric() bool {
	return k == EventLike || k == EventReply || k == EventMention
}

// KeyedByPost reports whether records deduplicate on (userId, postId)
// rather than userId alone
func (k EventKind) KeyedByPost() bool {
	return k == EventReply || k == EventMention
}

// Payload is the discriminated union stored in an event log row.
// Only the fields of the active variant are set; the Type field selects it.
type Payload struct {
	Type EventKind `json:"type"`

	// reply, like, mention
	UserID string `json:"userId,omitempty"` // acting user
	PostID string `json:"postId,omitempty"` // reply: the reply post; like: the liked post; mention: the mentioning post

	// reply
	ReplyToPostID string `json:"replyToPostId,omitempty"` // parent post

	// follow
	FollowerID string `json:"followerId,omitempty"`
	FolloweeID string `json:"followeeId,omitempty"`

	// mention
	MentionedUserID string `json:"mentionedUserId,omitempty"`
}

// Actor returns the user who performed the interaction
func (p Payload) Actor() string {
	if p.Type == EventFollow {
		return p.FollowerID
	}
	return p.UserID
}

// AffinityKey returns the value hashed to pick the event's partition.
// All events that can merge into the same slot share an affinity key, so
// they land on the same partition and are applied by a single worker.
func (p Payload) AffinityKey() string {
	switch p.Type {
	case EventFollow:
		return p.FolloweeID
	case EventLike:
		return p.PostID
	case EventReply:
		return p.ReplyToPostID
	case EventMention:
		return p.MentionedUserID
	}
	return ""
}

// Slot returns the aggregation slot string for the event
func (p Payload) Slot() string {
	switch p.Type {
	case EventFollow:
		return "follow"
	case EventLike:
		return "like:" + p.PostID
	case EventReply:
		return "reply:" + p.ReplyToPostID
	case EventMention:
		return "mention:" + p.PostID
	}
	return ""
}

// Validate checks that the fields of the active variant are present
func (p Payload) Validate() error {
	switch p.Type {
	case EventReply:
		if p.UserID == "" || p.PostID == "" || p.ReplyToPostID == "" {
			return fmt.Errorf("reply payload requires userId, postId, replyToPostId")
		}
	case EventLike:
		if p.UserID == "" || p.PostID == "" {
			return fmt.Errorf("like payload requires userId, postId")
		}
	case EventFollow:
		if p.FollowerID == "" || p.FolloweeID == "" {
			return fmt.Errorf("follow payload requires followerId, followeeId")
		}
	case EventMention:
		if p.UserID == "" || p.PostID == "" || p.MentionedUserID == "" {
			return fmt.Errorf("mention payload requires userId, postId, mentionedUserId")
		}
	default:
		return fmt.Errorf("unknown payload type %q", p.Type)
	}
	return nil
}

// Event is one immutable row of the partitioned event log
type Event struct {
	ID        uint64
	Partition int
	Payload   Payload
}

// UserRecord is one acting-user entry in a user-centric aggregate
type UserRecord struct {
	UserID       string `json:"userId"`
	UserNickname string `json:"userNickname"`
	TS           int64  `json:"ts"` // event time, seconds
}

// PostRecord is one entry in a post-centric aggregate
type PostRecord struct {
	UserID       string `json:"userId"`
	UserNickname string `json:"userNickname"`
	PostID       string `json:"postId"`
	PostSnippet  string `json:"postSnippet"`
	TS           int64  `json:"ts"` // event time, seconds
}

// UserAggregate is the stored payload of a follow slot
type UserAggregate struct {
	CountUsers int          `json:"countUsers"`
	Records    []UserRecord `json:"records"`
}

// PostAggregate is the stored payload of a like, reply, or mention slot.
// CountPosts is tracked only for kinds keyed by (userId, postId); for like
// slots it stays zero and is omitted from the serialized form.
type PostAggregate struct {
	CountUsers int          `json:"countUsers"`
	CountPosts int          `json:"countPosts,omitempty"`
	Records    []PostRecord `json:"records"`
}

// Notification is one materialized aggregate row keyed (user, slot, term)
type Notification struct {
	UserID    string
	Slot      string
	Term      string
	IsRead    bool
	Payload   []byte // serialized UserAggregate or PostAggregate
	UpdatedAt time.Time
}

// Term formats an event timestamp (epoch milliseconds) as the calendar-day
// bucket YYYY-MM-DD in the configured zone
func Term(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("2006-01-02")
}
