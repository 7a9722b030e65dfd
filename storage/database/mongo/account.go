package mongodb

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
)

type accountRepository struct {
	coll *mongo.Collection
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{coll: db.coll(accountsColl)}
}

func (repo *accountRepository) Create(ctx context.Context, acc account.Account) (account.Account, error) {
	if acc.ID == "" {
		acc.ID = core.NewID()
	}
	if _, err := repo.coll.InsertOne(ctx, acc); err != nil {
		return account.Account{}, mapError(err)
	}
	return acc, nil
}

func (repo *accountRepository) GetByID(ctx context.Context, id string) (account.Account, error) {
	return findOne[account.Account](ctx, repo.coll, byID(id))
}

func (repo *accountRepository) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	return findOne[account.Account](ctx, repo.coll, bson.M{"email": email})
}

func (repo *accountRepository) Query(ctx context.Context, filter account.QueryFilter) ([]account.Account, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = filter.Role
	}
	if filter.Search != "" {
		pattern := regexp.QuoteMeta(filter.Search)
		q["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return findAll[account.Account](ctx, repo.coll, q, newestFirst("createdAt"))
}

func (repo *accountRepository) Update(ctx context.Context, acc account.Account) (account.Account, error) {
	return updateOne[account.Account](ctx, repo.coll, byID(acc.ID), bson.M{"$set": bson.M{
		"name":         acc.Name,
		"email":        acc.Email,
		"passwordHash": acc.PasswordHash,
		"age":          acc.Age,
		"address":      acc.Address,
		"updatedAt":    acc.UpdatedAt,
	}})
}

func (repo *accountRepository) Delete(ctx context.Context, id string) error {
	return deleteOne(ctx, repo.coll, byID(id))
}
