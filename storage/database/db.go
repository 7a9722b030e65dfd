// Package database opens the document store selected by the configuration
// and builds the repositories on top of it.
package database

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
	inmemdb "github.com/ThumulaGamage/EduPlatform-backend/storage/database/inmem"
	mongodb "github.com/ThumulaGamage/EduPlatform-backend/storage/database/mongo"
)

// Store is an open database along with its repositories.
type Store struct {
	Accounts    account.Repository
	Courses     course.Repository
	Enrollments enrollment.Repository
	Assignments assignment.Repository
	Submissions assignment.SubmissionRepository
	Messages    message.Repository
	Reviews     review.Repository

	ping    func(ctx context.Context) error
	close   func(ctx context.Context) error
	migrate func(ctx context.Context) error
}

// Open connects to the engine named by conf.Database.Engine.
func Open(conf *core.Config) (*Store, error) {
	switch conf.Database.Engine {
	case core.EngineMongo:
		db, err := mongodb.Open(conf)
		if err != nil {
			return nil, err
		}
		return &Store{
			Accounts:    mongodb.NewAccountRepository(db),
			Courses:     mongodb.NewCourseRepository(db),
			Enrollments: mongodb.NewEnrollmentRepository(db),
			Assignments: mongodb.NewAssignmentRepository(db),
			Submissions: mongodb.NewSubmissionRepository(db),
			Messages:    mongodb.NewMessageRepository(db),
			Reviews:     mongodb.NewReviewRepository(db),
			ping:        db.Ping,
			close:       db.Close,
			migrate:     db.EnsureIndexes,
		}, nil

	case core.EngineInmem:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, err
		}
		return &Store{
			Accounts:    inmemdb.NewAccountRepository(db),
			Courses:     inmemdb.NewCourseRepository(db),
			Enrollments: inmemdb.NewEnrollmentRepository(db),
			Assignments: inmemdb.NewAssignmentRepository(db),
			Submissions: inmemdb.NewSubmissionRepository(db),
			Messages:    inmemdb.NewMessageRepository(db),
			Reviews:     inmemdb.NewReviewRepository(db),
			ping:        db.Ping,
			close:       func(context.Context) error { return nil },
			migrate:     func(context.Context) error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// Migrate creates the indexes the repositories rely on. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.migrate(ctx); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
