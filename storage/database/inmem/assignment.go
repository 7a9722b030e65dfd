package inmemdb

import (
	"context"
	"sort"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
)

type assignmentRepository struct {
	db *table[assignment.Assignment]
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db.assignments}
}

func cloneAssignment(a *assignment.Assignment) assignment.Assignment {
	c := *a
	c.Attachments = append([]assignment.Attachment{}, a.Attachments...)
	return c
}

func (repo *assignmentRepository) Create(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.ID == "" {
		a.ID = core.NewID()
	}
	if _, ok := repo.db.rows[a.ID]; ok {
		return assignment.Assignment{}, core.ErrAlreadyExists
	}
	stored := cloneAssignment(&a)
	repo.db.rows[a.ID] = &stored
	return cloneAssignment(&stored), nil
}

func (repo *assignmentRepository) GetByID(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.rows[id]; ok {
		return cloneAssignment(a), nil
	}
	return assignment.Assignment{}, core.ErrNotFound
}

func (repo *assignmentRepository) Query(_ context.Context, filter assignment.AssignmentFilter) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.all(func(a *assignment.Assignment) bool {
		return (filter.CourseID == "" || a.CourseID == filter.CourseID) &&
			(!filter.ExcludeDraft || a.Status != assignment.StatusDraft)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].DueDate.Before(rows[j].DueDate)
	})

	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, a := range rows {
		assignments = append(assignments, cloneAssignment(a))
	}
	return assignments, nil
}

func (repo *assignmentRepository) Update(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[a.ID]
	if !ok {
		return assignment.Assignment{}, core.ErrNotFound
	}
	a.CreatedAt = orig.CreatedAt
	stored := cloneAssignment(&a)
	repo.db.rows[a.ID] = &stored
	return cloneAssignment(&stored), nil
}

func (repo *assignmentRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

func (repo *assignmentRepository) DeleteByCourse(_ context.Context, courseID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, a := range repo.db.rows {
		if a.CourseID == courseID {
			delete(repo.db.rows, id)
		}
	}
	return nil
}

type submissionRepository struct {
	db *table[assignment.Submission]
}

var _ assignment.SubmissionRepository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) assignment.SubmissionRepository {
	return &submissionRepository{db: db.submissions}
}

func cloneSubmission(s *assignment.Submission) assignment.Submission {
	c := *s
	c.Attachments = append([]assignment.Attachment{}, s.Attachments...)
	if s.Grade != nil {
		g := *s.Grade
		c.Grade = &g
	}
	return c
}

func (repo *submissionRepository) Create(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.ID == "" {
		s.ID = core.NewID()
	}
	for _, row := range repo.db.rows {
		if row.ID == s.ID || (row.AssignmentID == s.AssignmentID && row.StudentID == s.StudentID) {
			return assignment.Submission{}, core.ErrAlreadyExists
		}
	}
	stored := cloneSubmission(&s)
	repo.db.rows[s.ID] = &stored
	return cloneSubmission(&stored), nil
}

func (repo *submissionRepository) GetByID(_ context.Context, id string) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.rows[id]; ok {
		return cloneSubmission(s), nil
	}
	return assignment.Submission{}, core.ErrNotFound
}

func (repo *submissionRepository) Find(_ context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.rows {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return cloneSubmission(s), nil
		}
	}
	return assignment.Submission{}, core.ErrNotFound
}

func (repo *submissionRepository) Query(_ context.Context, filter assignment.SubmissionFilter) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.all(func(s *assignment.Submission) bool {
		return (filter.AssignmentID == "" || s.AssignmentID == filter.AssignmentID) &&
			(filter.StudentID == "" || s.StudentID == filter.StudentID) &&
			(filter.CourseID == "" || s.CourseID == filter.CourseID)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SubmittedAt.Equal(rows[j].SubmittedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].SubmittedAt.After(rows[j].SubmittedAt)
	})

	subs := make([]assignment.Submission, 0, len(rows))
	for _, s := range rows {
		subs = append(subs, cloneSubmission(s))
	}
	return subs, nil
}

func (repo *submissionRepository) UpdateUngraded(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[s.ID]
	if !ok || orig.Status == assignment.SubmissionGraded {
		return assignment.Submission{}, core.ErrNotFound
	}
	updated := cloneSubmission(orig)
	updated.Content = s.Content
	updated.Attachments = append([]assignment.Attachment{}, s.Attachments...)
	updated.IsLate = s.IsLate
	updated.SubmittedAt = s.SubmittedAt
	updated.UpdatedAt = s.UpdatedAt
	repo.db.rows[s.ID] = &updated
	return cloneSubmission(&updated), nil
}

func (repo *submissionRepository) DeleteUngraded(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[id]
	if !ok || orig.Status == assignment.SubmissionGraded {
		return core.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

func (repo *submissionRepository) SetGrade(_ context.Context, id string, g assignment.Grade) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[id]
	if !ok {
		return assignment.Submission{}, core.ErrNotFound
	}
	s := cloneSubmission(orig)
	s.Grade = &g
	s.Status = assignment.SubmissionGraded
	s.UpdatedAt = g.GradedAt
	repo.db.rows[id] = &s
	return cloneSubmission(&s), nil
}

func (repo *submissionRepository) DeleteByAssignment(_ context.Context, assignmentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, s := range repo.db.rows {
		if s.AssignmentID == assignmentID {
			delete(repo.db.rows, id)
		}
	}
	return nil
}

func (repo *submissionRepository) DeleteByCourse(_ context.Context, courseID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, s := range repo.db.rows {
		if s.CourseID == courseID {
			delete(repo.db.rows, id)
		}
	}
	return nil
}
