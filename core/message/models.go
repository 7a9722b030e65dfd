package message

import (
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
)

// Message is an entry of the append-only message log.
type Message struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   string    `json:"senderId" bson:"senderId"`
	ReceiverID string    `json:"receiverId" bson:"receiverId"`
	CourseID   string    `json:"courseId" bson:"courseId"`
	Content    string    `json:"content" bson:"content"`
	IsRead     bool      `json:"isRead" bson:"isRead"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Conversation groups the messages exchanged with one counterpart about one course.
type Conversation struct {
	User        *account.Summary `json:"user"`
	Course      *course.Summary  `json:"course"`
	LastMessage Message          `json:"lastMessage"`
	UnreadCount int              `json:"unreadCount"`
}

type NewMessage struct {
	ReceiverID string `json:"receiverId" validate:"required,objectid"`
	CourseID   string `json:"courseId" validate:"required,objectid"`
	Content    string `json:"content" validate:"required,max=2000"`
}

func (nm *NewMessage) clean() {
	nm.ReceiverID = core.CleanString(nm.ReceiverID)
	nm.CourseID = core.CleanString(nm.CourseID)
	nm.Content = core.CleanString(nm.Content)
}

// QueryFilter selects messages.
// With Participant set, only messages sent or received by that account match;
// with Counterpart also set, only the messages exchanged between the two.
type QueryFilter struct {
	Participant string
	Counterpart string
	CourseID    string
}
