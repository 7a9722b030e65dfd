package inmemdb

import (
	"context"
	"sort"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
)

type reviewRepository struct {
	db *table[review.Review]
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db.reviews}
}

func (repo *reviewRepository) Create(_ context.Context, r review.Review) (review.Review, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r.ID == "" {
		r.ID = core.NewID()
	}
	for _, row := range repo.db.rows {
		if row.ID == r.ID || (row.CourseID == r.CourseID && row.StudentID == r.StudentID) {
			return review.Review{}, core.ErrAlreadyExists
		}
	}
	stored := r
	repo.db.rows[r.ID] = &stored
	return r, nil
}

func (repo *reviewRepository) Find(_ context.Context, courseID, studentID string) (review.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.rows {
		if r.CourseID == courseID && r.StudentID == studentID {
			return *r, nil
		}
	}
	return review.Review{}, core.ErrNotFound
}

func (repo *reviewRepository) Query(_ context.Context, courseID, studentID string) ([]review.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.all(func(r *review.Review) bool {
		return (courseID == "" || r.CourseID == courseID) && (studentID == "" || r.StudentID == studentID)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	reviews := make([]review.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, *r)
	}
	return reviews, nil
}

func (repo *reviewRepository) Update(_ context.Context, r review.Review) (review.Review, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[r.ID]
	if !ok {
		return review.Review{}, core.ErrNotFound
	}
	orig.Rating = r.Rating
	orig.Text = r.Text
	orig.UpdatedAt = r.UpdatedAt
	return *orig, nil
}

func (repo *reviewRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

func (repo *reviewRepository) DeleteByCourse(_ context.Context, courseID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, r := range repo.db.rows {
		if r.CourseID == courseID {
			delete(repo.db.rows, id)
		}
	}
	return nil
}
