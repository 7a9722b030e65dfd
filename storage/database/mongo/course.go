package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
)

type courseRepository struct {
	coll *mongo.Collection
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{coll: db.coll(coursesColl)}
}

func (repo *courseRepository) Create(ctx context.Context, c course.Course) (course.Course, error) {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, c); err != nil {
		return course.Course{}, mapError(err)
	}
	return c, nil
}

func (repo *courseRepository) GetByID(ctx context.Context, id string) (course.Course, error) {
	return findOne[course.Course](ctx, repo.coll, byID(id))
}

func (repo *courseRepository) Query(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	q := bson.M{}
	if filter.TeacherID != "" {
		q["teacherId"] = filter.TeacherID
	}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.Level != "" {
		q["level"] = filter.Level
	}
	return findAll[course.Course](ctx, repo.coll, q, newestFirst("createdAt"))
}

func (repo *courseRepository) Update(ctx context.Context, c course.Course) (course.Course, error) {
	return updateOne[course.Course](ctx, repo.coll, byID(c.ID), bson.M{"$set": bson.M{
		"title":        c.Title,
		"description":  c.Description,
		"teacherId":    c.TeacherID,
		"duration":     c.Duration,
		"level":        c.Level,
		"category":     c.Category,
		"image":        c.Image,
		"objectives":   c.Objectives,
		"requirements": c.Requirements,
		"updatedAt":    c.UpdatedAt,
	}})
}

func (repo *courseRepository) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, repo.coll, byID(id))
}

// lessonsByOrder re-sorts the embedded lessons when pushed with no new element.
var lessonsByOrder = bson.M{"$each": bson.A{}, "$sort": bson.M{"order": 1}}

func (repo *courseRepository) AddLesson(ctx context.Context, id string, l course.Lesson, updatedAt time.Time) (course.Course, error) {
	return updateOne[course.Course](ctx, repo.coll, byID(id), bson.M{
		"$push": bson.M{"lessons": bson.M{"$each": bson.A{l}, "$sort": bson.M{"order": 1}}},
		"$inc":  bson.M{"totalLessons": 1},
		"$set":  bson.M{"updatedAt": updatedAt},
	})
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, id, lessonID string, ul course.UpdateLesson, updatedAt time.Time) (course.Course, error) {
	set := bson.M{"updatedAt": updatedAt}
	if ul.Title != nil {
		set["lessons.$.title"] = *ul.Title
	}
	if ul.Description != nil {
		set["lessons.$.description"] = *ul.Description
	}
	if ul.Duration != nil {
		set["lessons.$.duration"] = *ul.Duration
	}
	if ul.Order != nil {
		set["lessons.$.order"] = *ul.Order
	}
	c, err := updateOne[course.Course](ctx, repo.coll, bson.M{"_id": id, "lessons.id": lessonID}, bson.M{"$set": set})
	if err != nil || ul.Order == nil {
		return c, err
	}
	// the positional update and the sort cannot target the same array in one update
	return updateOne[course.Course](ctx, repo.coll, byID(id), bson.M{"$push": bson.M{"lessons": lessonsByOrder}})
}

func (repo *courseRepository) RemoveLesson(ctx context.Context, id, lessonID string, updatedAt time.Time) (course.Course, error) {
	return updateOne[course.Course](ctx, repo.coll,
		bson.M{"_id": id, "lessons.id": lessonID},
		bson.M{
			"$pull": bson.M{"lessons": bson.M{"id": lessonID}},
			"$inc":  bson.M{"totalLessons": -1},
			"$set":  bson.M{"updatedAt": updatedAt},
		},
	)
}

func (repo *courseRepository) AddMaterial(ctx context.Context, id string, m course.Material, updatedAt time.Time) (course.Course, error) {
	return updateOne[course.Course](ctx, repo.coll, byID(id), bson.M{
		"$push": bson.M{"materials": m},
		"$set":  bson.M{"updatedAt": updatedAt},
	})
}

func (repo *courseRepository) RemoveMaterial(ctx context.Context, id, materialID string, updatedAt time.Time) (course.Course, error) {
	return updateOne[course.Course](ctx, repo.coll,
		bson.M{"_id": id, "materials.id": materialID},
		bson.M{
			"$pull": bson.M{"materials": bson.M{"id": materialID}},
			"$set":  bson.M{"updatedAt": updatedAt},
		},
	)
}
