package review

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

var (
	// errors
	ErrNotFound      = core.NewError(core.KindNotFound, "review not found")
	ErrNotEnrolled   = core.NewError(core.KindForbidden, "you must be enrolled in this course to review it")
	ErrInvalidRating = core.NewError(core.KindInvalidArgument, "rating must be between 1 and 5")
	ErrDuplicate     = core.NewError(core.KindDuplicateReview, "you have already reviewed this course")
)

type (
	Repository interface {
		// Create fails with core.ErrAlreadyExists if the (course, student) pair is taken.
		Create(ctx context.Context, r Review) (Review, error)
		Find(ctx context.Context, courseID, studentID string) (Review, error)
		// Query returns the reviews of a course or of a student, newest first.
		Query(ctx context.Context, courseID, studentID string) ([]Review, error)
		Update(ctx context.Context, r Review) (Review, error)
		Delete(ctx context.Context, id string) error
		DeleteByCourse(ctx context.Context, courseID string) error
	}

	CourseFinder interface {
		Get(ctx context.Context, id string) (course.Course, error)
	}

	EnrollmentChecker interface {
		IsApproved(ctx context.Context, studentID, courseID string) (bool, error)
	}

	AccountFinder interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo        Repository
		courses     CourseFinder
		enrollments EnrollmentChecker
		accounts    AccountFinder
		guard       *guard.Guard
		validate    *validator.Validate
	}
)

func NewService(
	repo Repository,
	courses CourseFinder,
	enrollments EnrollmentChecker,
	accounts AccountFinder,
	g *guard.Guard,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		accounts:    accounts,
		guard:       g,
		validate:    validate,
	}
}

// CreateOrUpdate records the principal's review of a course, replacing any previous one.
// created reports whether no previous review existed.
func (svc *Service) CreateOrUpdate(ctx context.Context, p core.Principal, in Input) (r Review, created bool, err error) {
	if err = svc.guard.Authorize(p, guard.ReviewWrite); err != nil {
		return Review{}, false, err
	}
	in.clean()
	if err = svc.validate.Struct(in); err != nil {
		return Review{}, false, err
	}
	c, err := svc.courses.Get(ctx, in.CourseID)
	if err != nil {
		return Review{}, false, err
	}
	approved, err := svc.enrollments.IsApproved(ctx, p.ID, c.ID)
	if err != nil {
		return Review{}, false, err
	}
	if !approved {
		return Review{}, false, ErrNotEnrolled
	}
	if *in.Rating < MinRating || *in.Rating > MaxRating {
		return Review{}, false, ErrInvalidRating
	}

	now := core.Now()
	existing, err := svc.repo.Find(ctx, c.ID, p.ID)
	switch {
	case err == nil:
		existing.Rating = *in.Rating
		existing.Text = in.Text
		existing.UpdatedAt = now
		r, err = svc.repo.Update(ctx, existing)
		return r, false, err
	case !core.IsKind(err, core.KindNotFound):
		return Review{}, false, errors.Wrap(err, "looking up review")
	}

	r, err = svc.repo.Create(ctx, Review{
		CourseID:  c.ID,
		StudentID: p.ID,
		Rating:    *in.Rating,
		Text:      in.Text,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if core.IsKind(err, core.KindAlreadyExists) { // lost a race on the unique (course, student) index
		return Review{}, false, ErrDuplicate
	}
	return r, err == nil, err
}

// CourseReviews lists the reviews of a course along with their rating statistics.
func (svc *Service) CourseReviews(ctx context.Context, courseID string) (CourseReviews, error) {
	c, err := svc.courses.Get(ctx, courseID)
	if err != nil {
		return CourseReviews{}, err
	}
	reviews, err := svc.repo.Query(ctx, c.ID, "")
	if err != nil {
		return CourseReviews{}, err
	}

	views := make([]View, 0, len(reviews))
	for _, r := range reviews {
		v := View{Review: r}
		if student, err := svc.accounts.GetByID(ctx, r.StudentID); err == nil {
			v.Student = student.Summary()
		}
		views = append(views, v)
	}
	return CourseReviews{Reviews: views, Stats: ComputeStats(reviews)}, nil
}

// ComputeStats returns the average rating, rounded to one decimal, and the rating histogram.
func ComputeStats(reviews []Review) Stats {
	stats := Stats{
		TotalReviews: len(reviews),
		Distribution: make(map[int]int, MaxRating),
	}
	for rating := MinRating; rating <= MaxRating; rating++ {
		stats.Distribution[rating] = 0
	}
	if len(reviews) == 0 {
		return stats
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		stats.Distribution[r.Rating]++
	}
	stats.AverageRating = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	return stats
}

// MyReview returns the principal's review of a course.
func (svc *Service) MyReview(ctx context.Context, p core.Principal, courseID string) (Review, error) {
	if p.ID == "" {
		return Review{}, core.NewError(core.KindUnauthenticated, "user not authenticated")
	}
	r, err := svc.repo.Find(ctx, courseID, p.ID)
	if core.IsKind(err, core.KindNotFound) {
		return Review{}, ErrNotFound
	}
	return r, err
}

// Delete removes the principal's review of a course.
func (svc *Service) Delete(ctx context.Context, p core.Principal, courseID string) error {
	r, err := svc.MyReview(ctx, p, courseID)
	if err != nil {
		return err
	}
	if err = svc.guard.Authorize(p, guard.ReviewDelete, r.StudentID); err != nil {
		return err
	}
	if err = svc.repo.Delete(ctx, r.ID); core.IsKind(err, core.KindNotFound) {
		return ErrNotFound
	}
	return err
}

// MyReviews lists the reviews written by the principal, with their course.
func (svc *Service) MyReviews(ctx context.Context, p core.Principal) ([]View, error) {
	if err := svc.guard.Authorize(p, guard.ReviewListOwn); err != nil {
		return nil, err
	}
	reviews, err := svc.repo.Query(ctx, "", p.ID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(reviews))
	for _, r := range reviews {
		v := View{Review: r}
		if c, err := svc.courses.Get(ctx, r.CourseID); err == nil {
			v.Course = c.Summary()
		}
		views = append(views, v)
	}
	return views, nil
}

// DeleteByCourse removes the reviews of a deleted course.
func (svc *Service) DeleteByCourse(ctx context.Context, courseID string) error {
	return svc.repo.DeleteByCourse(ctx, courseID)
}
