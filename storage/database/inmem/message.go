package inmemdb

import (
	"context"
	"sort"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
)

type messageRepository struct {
	db *table[message.Message]
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db.messages}
}

func (repo *messageRepository) Create(_ context.Context, m message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if m.ID == "" {
		m.ID = core.NewID()
	}
	if _, ok := repo.db.rows[m.ID]; ok {
		return message.Message{}, core.ErrAlreadyExists
	}
	stored := m
	repo.db.rows[m.ID] = &stored
	return m, nil
}

func (repo *messageRepository) Query(_ context.Context, filter message.QueryFilter) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.all(func(m *message.Message) bool {
		if filter.CourseID != "" && m.CourseID != filter.CourseID {
			return false
		}
		if filter.Participant == "" {
			return true
		}
		if filter.Counterpart == "" {
			return m.SenderID == filter.Participant || m.ReceiverID == filter.Participant
		}
		return (m.SenderID == filter.Participant && m.ReceiverID == filter.Counterpart) ||
			(m.SenderID == filter.Counterpart && m.ReceiverID == filter.Participant)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	msgs := make([]message.Message, 0, len(rows))
	for _, m := range rows {
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (repo *messageRepository) MarkRead(_ context.Context, receiverID, senderID, courseID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n := 0
	for _, m := range repo.db.rows {
		if m.ReceiverID == receiverID && m.SenderID == senderID && m.CourseID == courseID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (repo *messageRepository) CountUnread(_ context.Context, receiverID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, m := range repo.db.rows {
		if m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}
