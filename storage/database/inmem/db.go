package inmemdb

import (
	"context"
	"sync"

	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
)

type (
	// DB is a process-local document store. Every table enforces the same
	// uniqueness constraints as the indexes of the mongo store.
	DB struct {
		accounts    *table[account.Account]
		courses     *table[course.Course]
		enrollments *table[enrollment.Enrollment]
		assignments *table[assignment.Assignment]
		submissions *table[assignment.Submission]
		messages    *table[message.Message]
		reviews     *table[review.Review]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]*T
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func Open() (*DB, error) {
	db := &DB{
		accounts:    newTable[account.Account](),
		courses:     newTable[course.Course](),
		enrollments: newTable[enrollment.Enrollment](),
		assignments: newTable[assignment.Assignment](),
		submissions: newTable[assignment.Submission](),
		messages:    newTable[message.Message](),
		reviews:     newTable[review.Review](),
	}
	return db, nil
}

// Ping always succeeds.
func (db *DB) Ping(context.Context) error { return nil }

// all returns the rows for which keep reports true. The caller must hold the lock.
func (t *table[T]) all(keep func(*T) bool) []*T {
	rows := make([]*T, 0, len(t.rows))
	for _, r := range t.rows {
		if keep == nil || keep(r) {
			rows = append(rows, r)
		}
	}
	return rows
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
