package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
)

type reviewRepository struct {
	coll *mongo.Collection
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{coll: db.coll(reviewsColl)}
}

func (repo *reviewRepository) Create(ctx context.Context, r review.Review) (review.Review, error) {
	if r.ID == "" {
		r.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, r); err != nil {
		return review.Review{}, mapError(err)
	}
	return r, nil
}

func (repo *reviewRepository) Find(ctx context.Context, courseID, studentID string) (review.Review, error) {
	return findOne[review.Review](ctx, repo.coll, bson.M{"courseId": courseID, "studentId": studentID})
}

func (repo *reviewRepository) Query(ctx context.Context, courseID, studentID string) ([]review.Review, error) {
	q := bson.M{}
	if courseID != "" {
		q["courseId"] = courseID
	}
	if studentID != "" {
		q["studentId"] = studentID
	}
	return findAll[review.Review](ctx, repo.coll, q, newestFirst("createdAt"))
}

func (repo *reviewRepository) Update(ctx context.Context, r review.Review) (review.Review, error) {
	return updateOne[review.Review](ctx, repo.coll, byID(r.ID), bson.M{"$set": bson.M{
		"rating":    r.Rating,
		"review":    r.Text,
		"updatedAt": r.UpdatedAt,
	}})
}

func (repo *reviewRepository) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, repo.coll, byID(id))
}

func (repo *reviewRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	return deleteMany(ctx, repo.coll, bson.M{"courseId": courseID})
}
