// Package mongodb implements the repositories on a MongoDB document store.
// Uniqueness is enforced by the indexes created by EnsureIndexes; conditional
// updates rely on single-document atomicity.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

// Collections
const (
	accountsColl    = "users"
	coursesColl     = "courses"
	enrollmentsColl = "enrollments"
	assignmentsColl = "assignments"
	submissionsColl = "submissions"
	messagesColl    = "messages"
	reviewsColl     = "reviews"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the database and waits for it to be ready.
func Open(conf *core.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(conf.Database.URI).
		SetAppName(conf.AppName).
		SetConnectTimeout(conf.Database.ConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}

	db := &DB{client: client, db: client.Database(conf.Database.Name)}
	if err = ping(db, 30); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *DB, maxAttempts int) error {
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.client.Ping(ctx, readpref.Primary())
		cancel()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return mapError(db.client.Ping(ctx, readpref.Primary()))
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *DB) coll(name string) *mongo.Collection {
	return db.db.Collection(name)
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		accountsColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		coursesColl: {
			{Keys: bson.D{{Key: "teacherId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		enrollmentsColl: {
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "courseId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "status", Value: 1}}},
		},
		assignmentsColl: {
			{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "dueDate", Value: 1}}},
		},
		submissionsColl: {
			{Keys: bson.D{{Key: "assignmentId", Value: 1}, {Key: "studentId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "courseId", Value: 1}}},
		},
		messagesColl: {
			{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "isRead", Value: 1}}},
			{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "courseId", Value: 1}}},
		},
		reviewsColl: {
			{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "studentId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "studentId", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.coll(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes on %s", name)
		}
	}
	return nil
}

// mapError translates driver errors into the repository errors of core.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return core.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return core.ErrAlreadyExists
	case errors.Is(err, mongo.ErrClientDisconnected):
		return core.NewShutdownError("database connection lost")
	}
	return err
}

// findAll decodes every document matching filter.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapError(err)
	}
	docs := make([]T, 0)
	if err = cur.All(ctx, &docs); err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

// findOne decodes the document matching filter.
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		var zero T
		return zero, mapError(err)
	}
	return doc, nil
}

// updateOne applies update to the document matching filter and returns the updated document.
func updateOne[T any](ctx context.Context, coll *mongo.Collection, filter, update interface{}) (T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		var zero T
		return zero, mapError(err)
	}
	return doc, nil
}

// deleteOne deletes the document matching filter. It fails with core.ErrNotFound if there is none.
func deleteOne(ctx context.Context, coll *mongo.Collection, filter interface{}) error {
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func deleteMany(ctx context.Context, coll *mongo.Collection, filter interface{}) error {
	_, err := coll.DeleteMany(ctx, filter)
	return mapError(err)
}

func byID(id string) bson.M {
	return bson.M{"_id": id}
}

func newestFirst(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}, {Key: "_id", Value: -1}})
}
