package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
)

type enrollmentRepository struct {
	db *table[enrollment.Enrollment]
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db.enrollments}
}

func cloneEnrollment(e *enrollment.Enrollment) enrollment.Enrollment {
	c := *e
	c.CompletedLessons = append([]string{}, e.CompletedLessons...)
	if e.ApprovedAt != nil {
		t := *e.ApprovedAt
		c.ApprovedAt = &t
	}
	if e.RejectedAt != nil {
		t := *e.RejectedAt
		c.RejectedAt = &t
	}
	return c
}

func (repo *enrollmentRepository) Create(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if e.ID == "" {
		e.ID = core.NewID()
	}
	for _, row := range repo.db.rows {
		if row.ID == e.ID || (row.StudentID == e.StudentID && row.CourseID == e.CourseID) {
			return enrollment.Enrollment{}, core.ErrAlreadyExists
		}
	}
	stored := cloneEnrollment(&e)
	repo.db.rows[e.ID] = &stored
	return cloneEnrollment(&stored), nil
}

func (repo *enrollmentRepository) GetByID(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.rows[id]; ok {
		return cloneEnrollment(e), nil
	}
	return enrollment.Enrollment{}, core.ErrNotFound
}

func (repo *enrollmentRepository) Find(_ context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.rows {
		if e.StudentID == studentID && e.CourseID == courseID {
			return cloneEnrollment(e), nil
		}
	}
	return enrollment.Enrollment{}, core.ErrNotFound
}

func (repo *enrollmentRepository) match(filter enrollment.QueryFilter) []*enrollment.Enrollment {
	return repo.db.all(func(e *enrollment.Enrollment) bool {
		return (filter.StudentID == "" || e.StudentID == filter.StudentID) &&
			(filter.CourseIDs == nil || contains(filter.CourseIDs, e.CourseID)) &&
			(filter.Status == "" || e.Status == filter.Status)
	})
}

func (repo *enrollmentRepository) Query(_ context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.match(filter)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RequestedAt.Equal(rows[j].RequestedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].RequestedAt.After(rows[j].RequestedAt)
	})
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, e := range rows {
		enrollments = append(enrollments, cloneEnrollment(e))
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) Count(_ context.Context, filter enrollment.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.match(filter)), nil
}

// modify applies fn to the enrollment id if it currently has status.
func (repo *enrollmentRepository) modify(id, status string, at time.Time, fn func(e *enrollment.Enrollment)) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[id]
	if !ok || orig.Status != status {
		return enrollment.Enrollment{}, core.ErrNotFound
	}
	e := cloneEnrollment(orig)
	fn(&e)
	e.UpdatedAt = at
	repo.db.rows[id] = &e
	return cloneEnrollment(&e), nil
}

func (repo *enrollmentRepository) Transition(_ context.Context, id, status string, at time.Time) (enrollment.Enrollment, error) {
	return repo.modify(id, enrollment.StatusPending, at, func(e *enrollment.Enrollment) {
		e.Status = status
		switch status {
		case enrollment.StatusApproved:
			e.ApprovedAt = &at
		case enrollment.StatusRejected:
			e.RejectedAt = &at
		}
	})
}

func (repo *enrollmentRepository) SetProgress(_ context.Context, id string, progress int, at time.Time) (enrollment.Enrollment, error) {
	return repo.modify(id, enrollment.StatusApproved, at, func(e *enrollment.Enrollment) {
		e.Progress = progress
	})
}

func (repo *enrollmentRepository) AddCompletedLesson(_ context.Context, id, lessonID string, at time.Time) (enrollment.Enrollment, error) {
	return repo.modify(id, enrollment.StatusApproved, at, func(e *enrollment.Enrollment) {
		if !contains(e.CompletedLessons, lessonID) {
			e.CompletedLessons = append(e.CompletedLessons, lessonID)
		}
	})
}

func (repo *enrollmentRepository) RemoveCompletedLesson(_ context.Context, id, lessonID string, at time.Time) (enrollment.Enrollment, error) {
	return repo.modify(id, enrollment.StatusApproved, at, func(e *enrollment.Enrollment) {
		lessons := e.CompletedLessons[:0]
		for _, l := range e.CompletedLessons {
			if l != lessonID {
				lessons = append(lessons, l)
			}
		}
		e.CompletedLessons = lessons
	})
}

func (repo *enrollmentRepository) DeleteByCourse(_ context.Context, courseID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, e := range repo.db.rows {
		if e.CourseID == courseID {
			delete(repo.db.rows, id)
		}
	}
	return nil
}
