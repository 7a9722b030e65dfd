package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
)

type enrollmentRepository struct {
	coll *mongo.Collection
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{coll: db.coll(enrollmentsColl)}
}

func (repo *enrollmentRepository) Create(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	if e.ID == "" {
		e.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, e); err != nil {
		return enrollment.Enrollment{}, mapError(err)
	}
	return e, nil
}

func (repo *enrollmentRepository) GetByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return findOne[enrollment.Enrollment](ctx, repo.coll, byID(id))
}

func (repo *enrollmentRepository) Find(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	return findOne[enrollment.Enrollment](ctx, repo.coll, bson.M{"studentId": studentID, "courseId": courseID})
}

func queryFilter(filter enrollment.QueryFilter) bson.M {
	q := bson.M{}
	if filter.StudentID != "" {
		q["studentId"] = filter.StudentID
	}
	if filter.CourseIDs != nil {
		q["courseId"] = bson.M{"$in": filter.CourseIDs}
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	return q
}

func (repo *enrollmentRepository) Query(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	opts := newestFirst("requestedAt")
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findAll[enrollment.Enrollment](ctx, repo.coll, queryFilter(filter), opts)
}

func (repo *enrollmentRepository) Count(ctx context.Context, filter enrollment.QueryFilter) (int, error) {
	n, err := repo.coll.CountDocuments(ctx, queryFilter(filter))
	return int(n), mapError(err)
}

func (repo *enrollmentRepository) Transition(ctx context.Context, id, status string, at time.Time) (enrollment.Enrollment, error) {
	set := bson.M{"status": status, "updatedAt": at}
	switch status {
	case enrollment.StatusApproved:
		set["approvedAt"] = at
	case enrollment.StatusRejected:
		set["rejectedAt"] = at
	}
	return updateOne[enrollment.Enrollment](ctx, repo.coll,
		bson.M{"_id": id, "status": enrollment.StatusPending},
		bson.M{"$set": set},
	)
}

func approved(id string) bson.M {
	return bson.M{"_id": id, "status": enrollment.StatusApproved}
}

func (repo *enrollmentRepository) SetProgress(ctx context.Context, id string, progress int, at time.Time) (enrollment.Enrollment, error) {
	return updateOne[enrollment.Enrollment](ctx, repo.coll, approved(id), bson.M{
		"$set": bson.M{"progress": progress, "updatedAt": at},
	})
}

func (repo *enrollmentRepository) AddCompletedLesson(ctx context.Context, id, lessonID string, at time.Time) (enrollment.Enrollment, error) {
	return updateOne[enrollment.Enrollment](ctx, repo.coll, approved(id), bson.M{
		"$addToSet": bson.M{"completedLessons": lessonID},
		"$set":      bson.M{"updatedAt": at},
	})
}

func (repo *enrollmentRepository) RemoveCompletedLesson(ctx context.Context, id, lessonID string, at time.Time) (enrollment.Enrollment, error) {
	return updateOne[enrollment.Enrollment](ctx, repo.coll, approved(id), bson.M{
		"$pull": bson.M{"completedLessons": lessonID},
		"$set":  bson.M{"updatedAt": at},
	})
}

func (repo *enrollmentRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	return deleteMany(ctx, repo.coll, bson.M{"courseId": courseID})
}
