package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
)

type assignmentRepository struct {
	coll *mongo.Collection
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{coll: db.coll(assignmentsColl)}
}

func (repo *assignmentRepository) Create(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	if a.ID == "" {
		a.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, a); err != nil {
		return assignment.Assignment{}, mapError(err)
	}
	return a, nil
}

func (repo *assignmentRepository) GetByID(ctx context.Context, id string) (assignment.Assignment, error) {
	return findOne[assignment.Assignment](ctx, repo.coll, byID(id))
}

func (repo *assignmentRepository) Query(ctx context.Context, filter assignment.AssignmentFilter) ([]assignment.Assignment, error) {
	q := bson.M{}
	if filter.CourseID != "" {
		q["courseId"] = filter.CourseID
	}
	if filter.ExcludeDraft {
		q["status"] = bson.M{"$ne": assignment.StatusDraft}
	}
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[assignment.Assignment](ctx, repo.coll, q, opts)
}

func (repo *assignmentRepository) Update(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	return updateOne[assignment.Assignment](ctx, repo.coll, byID(a.ID), bson.M{"$set": bson.M{
		"title":               a.Title,
		"description":         a.Description,
		"instructions":        a.Instructions,
		"maxScore":            a.MaxScore,
		"dueDate":             a.DueDate,
		"allowLateSubmission": a.AllowLateSubmission,
		"status":              a.Status,
		"updatedAt":           a.UpdatedAt,
	}})
}

func (repo *assignmentRepository) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, repo.coll, byID(id))
}

func (repo *assignmentRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	return deleteMany(ctx, repo.coll, bson.M{"courseId": courseID})
}

type submissionRepository struct {
	coll *mongo.Collection
}

var _ assignment.SubmissionRepository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) assignment.SubmissionRepository {
	return &submissionRepository{coll: db.coll(submissionsColl)}
}

func (repo *submissionRepository) Create(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	if s.ID == "" {
		s.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, s); err != nil {
		return assignment.Submission{}, mapError(err)
	}
	return s, nil
}

func (repo *submissionRepository) GetByID(ctx context.Context, id string) (assignment.Submission, error) {
	return findOne[assignment.Submission](ctx, repo.coll, byID(id))
}

func (repo *submissionRepository) Find(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	return findOne[assignment.Submission](ctx, repo.coll, bson.M{"assignmentId": assignmentID, "studentId": studentID})
}

func (repo *submissionRepository) Query(ctx context.Context, filter assignment.SubmissionFilter) ([]assignment.Submission, error) {
	q := bson.M{}
	if filter.AssignmentID != "" {
		q["assignmentId"] = filter.AssignmentID
	}
	if filter.StudentID != "" {
		q["studentId"] = filter.StudentID
	}
	if filter.CourseID != "" {
		q["courseId"] = filter.CourseID
	}
	return findAll[assignment.Submission](ctx, repo.coll, q, newestFirst("submittedAt"))
}

func ungraded(id string) bson.M {
	return bson.M{"_id": id, "status": bson.M{"$ne": assignment.SubmissionGraded}}
}

func (repo *submissionRepository) UpdateUngraded(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	attachments := s.Attachments
	if attachments == nil {
		attachments = []assignment.Attachment{}
	}
	return updateOne[assignment.Submission](ctx, repo.coll, ungraded(s.ID), bson.M{"$set": bson.M{
		"content":     s.Content,
		"attachments": attachments,
		"isLate":      s.IsLate,
		"submittedAt": s.SubmittedAt,
		"updatedAt":   s.UpdatedAt,
	}})
}

func (repo *submissionRepository) DeleteUngraded(ctx context.Context, id string) error {
	return deleteOne(ctx, repo.coll, ungraded(id))
}

func (repo *submissionRepository) SetGrade(ctx context.Context, id string, g assignment.Grade) (assignment.Submission, error) {
	return updateOne[assignment.Submission](ctx, repo.coll, byID(id), bson.M{"$set": bson.M{
		"grade":     g,
		"status":    assignment.SubmissionGraded,
		"updatedAt": g.GradedAt,
	}})
}

func (repo *submissionRepository) DeleteByAssignment(ctx context.Context, assignmentID string) error {
	return deleteMany(ctx, repo.coll, bson.M{"assignmentId": assignmentID})
}

func (repo *submissionRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	return deleteMany(ctx, repo.coll, bson.M{"courseId": courseID})
}
