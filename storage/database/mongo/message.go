package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
)

type messageRepository struct {
	coll *mongo.Collection
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{coll: db.coll(messagesColl)}
}

func (repo *messageRepository) Create(ctx context.Context, m message.Message) (message.Message, error) {
	if m.ID == "" {
		m.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, m); err != nil {
		return message.Message{}, mapError(err)
	}
	return m, nil
}

func (repo *messageRepository) Query(ctx context.Context, filter message.QueryFilter) ([]message.Message, error) {
	q := bson.M{}
	if filter.CourseID != "" {
		q["courseId"] = filter.CourseID
	}
	switch {
	case filter.Participant == "":
	case filter.Counterpart == "":
		q["$or"] = bson.A{
			bson.M{"senderId": filter.Participant},
			bson.M{"receiverId": filter.Participant},
		}
	default:
		q["$or"] = bson.A{
			bson.M{"senderId": filter.Participant, "receiverId": filter.Counterpart},
			bson.M{"senderId": filter.Counterpart, "receiverId": filter.Participant},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[message.Message](ctx, repo.coll, q, opts)
}

func (repo *messageRepository) MarkRead(ctx context.Context, receiverID, senderID, courseID string) (int, error) {
	res, err := repo.coll.UpdateMany(ctx,
		bson.M{"receiverId": receiverID, "senderId": senderID, "courseId": courseID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, mapError(err)
	}
	return int(res.ModifiedCount), nil
}

func (repo *messageRepository) CountUnread(ctx context.Context, receiverID string) (int, error) {
	n, err := repo.coll.CountDocuments(ctx, bson.M{"receiverId": receiverID, "isRead": false})
	return int(n), mapError(err)
}
