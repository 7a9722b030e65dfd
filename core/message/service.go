package message

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

var (
	// errors
	ErrReceiverNotFound = core.NewError(core.KindNotFound, "receiver not found")
	ErrSelfMessage      = core.NewError(core.KindInvalidArgument, "cannot send a message to yourself")
)

type (
	Repository interface {
		Create(ctx context.Context, m Message) (Message, error)
		// Query returns the messages matching filter, oldest first.
		Query(ctx context.Context, filter QueryFilter) ([]Message, error)
		// MarkRead flags as read every unread message sent by senderID to receiverID about courseID.
		MarkRead(ctx context.Context, receiverID, senderID, courseID string) (int, error)
		CountUnread(ctx context.Context, receiverID string) (int, error)
	}

	CourseFinder interface {
		Get(ctx context.Context, id string) (course.Course, error)
	}

	AccountFinder interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo     Repository
		courses  CourseFinder
		accounts AccountFinder
		guard    *guard.Guard
		validate *validator.Validate
	}
)

func NewService(repo Repository, courses CourseFinder, accounts AccountFinder, g *guard.Guard, validate *validator.Validate) *Service {
	return &Service{repo: repo, courses: courses, accounts: accounts, guard: g, validate: validate}
}

// Send appends a message from the principal to the log.
func (svc *Service) Send(ctx context.Context, p core.Principal, nm NewMessage) (Message, error) {
	if err := svc.guard.Authorize(p, guard.MessageSend); err != nil {
		return Message{}, err
	}
	nm.clean()
	if err := svc.validate.Struct(nm); err != nil {
		return Message{}, err
	}
	if nm.ReceiverID == p.ID {
		return Message{}, ErrSelfMessage
	}
	if _, err := svc.accounts.GetByID(ctx, nm.ReceiverID); err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return Message{}, ErrReceiverNotFound
		}
		return Message{}, err
	}
	if _, err := svc.courses.Get(ctx, nm.CourseID); err != nil {
		return Message{}, err
	}

	m, err := svc.repo.Create(ctx, Message{
		SenderID:   p.ID,
		ReceiverID: nm.ReceiverID,
		CourseID:   nm.CourseID,
		Content:    nm.Content,
		CreatedAt:  core.Now(),
	})
	return m, errors.Wrap(err, "saving message")
}

// Conversation returns the messages exchanged between the principal and userID about courseID, oldest first.
func (svc *Service) Conversation(ctx context.Context, p core.Principal, userID, courseID string) ([]Message, error) {
	if p.ID == "" {
		return nil, core.NewError(core.KindUnauthenticated, "user not authenticated")
	}
	return svc.repo.Query(ctx, QueryFilter{Participant: p.ID, Counterpart: userID, CourseID: courseID})
}

type conversationKey struct {
	user, course string
}

// Conversations groups the messages of the principal by counterpart and course,
// most recently active first.
func (svc *Service) Conversations(ctx context.Context, p core.Principal) ([]Conversation, error) {
	if p.ID == "" {
		return nil, core.NewError(core.KindUnauthenticated, "user not authenticated")
	}
	msgs, err := svc.repo.Query(ctx, QueryFilter{Participant: p.ID})
	if err != nil {
		return nil, err
	}

	groups := make(map[conversationKey]*Conversation)
	for _, m := range msgs {
		counterpart := m.SenderID
		if counterpart == p.ID {
			counterpart = m.ReceiverID
		}
		key := conversationKey{counterpart, m.CourseID}
		conv, ok := groups[key]
		if !ok {
			conv = &Conversation{}
			groups[key] = conv
		}
		if !m.CreatedAt.Before(conv.LastMessage.CreatedAt) {
			conv.LastMessage = m
		}
		if m.ReceiverID == p.ID && !m.IsRead {
			conv.UnreadCount++
		}
	}

	conversations := make([]Conversation, 0, len(groups))
	for key, conv := range groups {
		if acc, err := svc.accounts.GetByID(ctx, key.user); err == nil {
			conv.User = acc.Summary()
		}
		if c, err := svc.courses.Get(ctx, key.course); err == nil {
			conv.Course = c.Summary()
		}
		conversations = append(conversations, *conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})
	return conversations, nil
}

// MarkAsRead flags every unread message sent by userID to the principal about courseID as read.
func (svc *Service) MarkAsRead(ctx context.Context, p core.Principal, userID, courseID string) (int, error) {
	if p.ID == "" {
		return 0, core.NewError(core.KindUnauthenticated, "user not authenticated")
	}
	return svc.repo.MarkRead(ctx, p.ID, userID, courseID)
}

func (svc *Service) UnreadCount(ctx context.Context, p core.Principal) (int, error) {
	if p.ID == "" {
		return 0, core.NewError(core.KindUnauthenticated, "user not authenticated")
	}
	return svc.repo.CountUnread(ctx, p.ID)
}
