package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

var (
	// errors
	ErrNotFound        = core.NewError(core.KindNotFound, "enrollment not found")
	ErrNotApproved     = core.NewError(core.KindInvalidTransition, "enrollment is not approved")
	ErrInvalidProgress = core.NewError(core.KindInvalidArgument, "progress must be between 0 and 100")
)

type (
	Repository interface {
		// Create fails with core.ErrAlreadyExists if the (student, course) pair is taken.
		Create(ctx context.Context, e Enrollment) (Enrollment, error)
		GetByID(ctx context.Context, id string) (Enrollment, error)
		Find(ctx context.Context, studentID, courseID string) (Enrollment, error)
		// Query returns the enrollments matching filter, most recently requested first.
		Query(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
		Count(ctx context.Context, filter QueryFilter) (int, error)
		// Transition moves a pending enrollment to status.
		// It fails with core.ErrNotFound when no pending enrollment has this id.
		Transition(ctx context.Context, id, status string, at time.Time) (Enrollment, error)
		// SetProgress, AddCompletedLesson and RemoveCompletedLesson only modify approved enrollments.
		// They fail with core.ErrNotFound when no approved enrollment has this id.
		SetProgress(ctx context.Context, id string, progress int, at time.Time) (Enrollment, error)
		AddCompletedLesson(ctx context.Context, id, lessonID string, at time.Time) (Enrollment, error)
		RemoveCompletedLesson(ctx context.Context, id, lessonID string, at time.Time) (Enrollment, error)
		DeleteByCourse(ctx context.Context, courseID string) error
	}

	CourseFinder interface {
		Get(ctx context.Context, id string) (course.Course, error)
		Query(ctx context.Context, filter course.QueryFilter) ([]course.Course, error)
	}

	AccountFinder interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		repo     Repository
		courses  CourseFinder
		accounts AccountFinder
		guard    *guard.Guard
		validate *validator.Validate
		mailer   core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	courses CourseFinder,
	accounts AccountFinder,
	g *guard.Guard,
	validate *validator.Validate,
	mailer core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		accounts: accounts,
		guard:    g,
		validate: validate,
		mailer:   mailer,
		logger:   logger,
	}
}

func alreadyExists(status string) error {
	return core.NewError(core.KindAlreadyExists, fmt.Sprintf("Already %s. Cannot request again.", status))
}

// Request asks for the enrollment of the principal in a course. A pair can be requested only once.
func (svc *Service) Request(ctx context.Context, p core.Principal, in RequestInput) (Enrollment, error) {
	if err := svc.guard.Authorize(p, guard.EnrollmentRequest); err != nil {
		return Enrollment{}, err
	}
	if err := svc.validate.Struct(in); err != nil {
		return Enrollment{}, err
	}
	c, err := svc.courses.Get(ctx, in.CourseID)
	if err != nil {
		return Enrollment{}, err
	}

	if existing, err := svc.repo.Find(ctx, p.ID, c.ID); err == nil {
		return Enrollment{}, alreadyExists(existing.Status)
	} else if !core.IsKind(err, core.KindNotFound) {
		return Enrollment{}, errors.Wrap(err, "looking up enrollment")
	}

	now := core.Now()
	e, err := svc.repo.Create(ctx, Enrollment{
		StudentID:        p.ID,
		CourseID:         c.ID,
		Status:           StatusPending,
		CompletedLessons: []string{},
		RequestedAt:      now,
		UpdatedAt:        now,
	})
	if core.IsKind(err, core.KindAlreadyExists) { // lost a race on the unique (student, course) index
		status := StatusPending
		if existing, fErr := svc.repo.Find(ctx, p.ID, c.ID); fErr == nil {
			status = existing.Status
		}
		return Enrollment{}, alreadyExists(status)
	}
	return e, err
}

func (svc *Service) Get(ctx context.Context, id string) (Enrollment, error) {
	if !core.IsID(id) {
		return Enrollment{}, ErrNotFound
	}
	e, err := svc.repo.GetByID(ctx, id)
	if core.IsKind(err, core.KindNotFound) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

// load returns the enrollment id and its course.
func (svc *Service) load(ctx context.Context, id string) (Enrollment, course.Course, error) {
	e, err := svc.Get(ctx, id)
	if err != nil {
		return Enrollment{}, course.Course{}, err
	}
	c, err := svc.courses.Get(ctx, e.CourseID)
	if err != nil {
		return Enrollment{}, course.Course{}, err
	}
	return e, c, nil
}

func (svc *Service) Approve(ctx context.Context, p core.Principal, id string) (Enrollment, error) {
	return svc.decide(ctx, p, id, StatusApproved)
}

func (svc *Service) Reject(ctx context.Context, p core.Principal, id string) (Enrollment, error) {
	return svc.decide(ctx, p, id, StatusRejected)
}

func (svc *Service) decide(ctx context.Context, p core.Principal, id, status string) (Enrollment, error) {
	e, c, err := svc.load(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if err = svc.guard.Authorize(p, guard.EnrollmentDecide, c.TeacherID); err != nil {
		return Enrollment{}, err
	}
	notPending := core.NewError(core.KindInvalidTransition, fmt.Sprintf("Enrollment is already %s", e.Status))
	if !e.IsPending() {
		return Enrollment{}, notPending
	}

	e, err = svc.repo.Transition(ctx, e.ID, status, core.Now())
	if err != nil {
		if core.IsKind(err, core.KindNotFound) { // decided concurrently
			return Enrollment{}, core.NewError(core.KindInvalidTransition, "Enrollment is not pending anymore")
		}
		return Enrollment{}, errors.Wrap(err, "updating enrollment status")
	}
	svc.notify(ctx, e, c)
	return e, nil
}

// notify emails the student about the decision on their request.
func (svc *Service) notify(ctx context.Context, e Enrollment, c course.Course) {
	student, err := svc.accounts.GetByID(ctx, e.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("enrollment %s: student %s not found for notification", e.ID, e.StudentID), err)
		return
	}
	to := mail.Address{Name: student.Name, Address: student.Email}
	svc.mailer.SendMessages(core.NewEnrollmentDecisionEmail(to, c.Title, e.Status))
}

// loadForProgress loads the enrollment and checks that p may track its progress.
func (svc *Service) loadForProgress(ctx context.Context, p core.Principal, id string) (Enrollment, course.Course, error) {
	e, c, err := svc.load(ctx, id)
	if err != nil {
		return Enrollment{}, course.Course{}, err
	}
	if err = svc.guard.Authorize(p, guard.EnrollmentProgress, e.StudentID, c.TeacherID); err != nil {
		return Enrollment{}, course.Course{}, err
	}
	return e, c, nil
}

func approvedOnly(e Enrollment, err error) (Enrollment, error) {
	if core.IsKind(err, core.KindNotFound) { // status changed concurrently
		return Enrollment{}, ErrNotApproved
	}
	return e, err
}

// UpdateProgress sets the progress of an approved enrollment.
func (svc *Service) UpdateProgress(ctx context.Context, p core.Principal, id string, progress int) (Enrollment, error) {
	e, _, err := svc.loadForProgress(ctx, p, id)
	if err != nil {
		return Enrollment{}, err
	}
	if progress < 0 || progress > 100 {
		return Enrollment{}, ErrInvalidProgress
	}
	if !e.IsApproved() {
		return Enrollment{}, ErrNotApproved
	}
	return approvedOnly(svc.repo.SetProgress(ctx, e.ID, progress, core.Now()))
}

// CompleteLesson marks a lesson of the course as completed. It is idempotent.
func (svc *Service) CompleteLesson(ctx context.Context, p core.Principal, id, lessonID string) (Enrollment, error) {
	e, c, err := svc.loadForProgress(ctx, p, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !e.IsApproved() {
		return Enrollment{}, ErrNotApproved
	}
	if !c.HasLesson(lessonID) {
		return Enrollment{}, course.ErrLessonNotFound
	}
	return approvedOnly(svc.repo.AddCompletedLesson(ctx, e.ID, lessonID, core.Now()))
}

// UncompleteLesson removes a lesson from the completed ones. It is idempotent.
func (svc *Service) UncompleteLesson(ctx context.Context, p core.Principal, id, lessonID string) (Enrollment, error) {
	e, _, err := svc.loadForProgress(ctx, p, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !e.IsApproved() {
		return Enrollment{}, ErrNotApproved
	}
	return approvedOnly(svc.repo.RemoveCompletedLesson(ctx, e.ID, lessonID, core.Now()))
}

// IsApproved reports whether the student has an approved enrollment in the course.
func (svc *Service) IsApproved(ctx context.Context, studentID, courseID string) (bool, error) {
	e, err := svc.repo.Find(ctx, studentID, courseID)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.IsApproved(), nil
}

// Mine lists the enrollments of the principal.
func (svc *Service) Mine(ctx context.Context, p core.Principal) ([]View, error) {
	if err := svc.guard.Authorize(p, guard.EnrollmentListOwn); err != nil {
		return nil, err
	}
	enrollments, err := svc.repo.Query(ctx, QueryFilter{StudentID: p.ID})
	if err != nil {
		return nil, err
	}
	return svc.views(ctx, enrollments, nil, true, false), nil
}

// Pending lists the pending requests on the courses taught by the principal. Admins see all of them.
func (svc *Service) Pending(ctx context.Context, p core.Principal) ([]View, error) {
	return svc.teaching(ctx, p, StatusPending)
}

// Students lists the approved enrollments on the courses taught by the principal.
func (svc *Service) Students(ctx context.Context, p core.Principal) ([]View, error) {
	return svc.teaching(ctx, p, StatusApproved)
}

func (svc *Service) teaching(ctx context.Context, p core.Principal, status string) ([]View, error) {
	if err := svc.guard.Authorize(p, guard.EnrollmentListTeaching); err != nil {
		return nil, err
	}
	filter := QueryFilter{Status: status}
	var courses map[string]course.Course
	if !p.IsAdmin() {
		cs, err := svc.courses.Query(ctx, course.QueryFilter{TeacherID: p.ID})
		if err != nil {
			return nil, err
		}
		courses = make(map[string]course.Course, len(cs))
		filter.CourseIDs = make([]string, 0, len(cs))
		for _, c := range cs {
			courses[c.ID] = c
			filter.CourseIDs = append(filter.CourseIDs, c.ID)
		}
	}
	enrollments, err := svc.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return svc.views(ctx, enrollments, courses, true, true), nil
}

// ByCourse lists every enrollment of a course.
func (svc *Service) ByCourse(ctx context.Context, p core.Principal, courseID string) ([]View, error) {
	c, err := svc.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err = svc.guard.Authorize(p, guard.EnrollmentListCourse, c.TeacherID); err != nil {
		return nil, err
	}
	enrollments, err := svc.repo.Query(ctx, QueryFilter{CourseIDs: []string{c.ID}})
	if err != nil {
		return nil, err
	}
	return svc.views(ctx, enrollments, map[string]course.Course{c.ID: c}, false, true), nil
}

// views decorates enrollments with their course and student summaries.
// Missing courses or students are left out of the view.
func (svc *Service) views(ctx context.Context, enrollments []Enrollment, courses map[string]course.Course, withCourse, withStudent bool) []View {
	if courses == nil {
		courses = make(map[string]course.Course)
	}
	students := make(map[string]account.Account)
	views := make([]View, 0, len(enrollments))
	for _, e := range enrollments {
		v := View{Enrollment: e}
		if withCourse {
			c, ok := courses[e.CourseID]
			if !ok {
				if found, err := svc.courses.Get(ctx, e.CourseID); err == nil {
					c, ok = found, true
					courses[c.ID] = c
				}
			}
			if ok {
				v.Course = c.Summary()
			}
		}
		if withStudent {
			s, ok := students[e.StudentID]
			if !ok {
				if found, err := svc.accounts.GetByID(ctx, e.StudentID); err == nil {
					s, ok = found, true
					students[s.ID] = s
				}
			}
			if ok {
				v.Student = s.Summary()
			}
		}
		views = append(views, v)
	}
	return views
}

// DeleteByCourse removes the enrollments of a deleted course.
func (svc *Service) DeleteByCourse(ctx context.Context, courseID string) error {
	return svc.repo.DeleteByCourse(ctx, courseID)
}

// Count returns the number of enrollments matching filter.
func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int, error) {
	return svc.repo.Count(ctx, filter)
}

// Recent lists the latest enrollments matching filter, with their course and student.
func (svc *Service) Recent(ctx context.Context, filter QueryFilter, limit int) ([]View, error) {
	filter.Limit = limit
	enrollments, err := svc.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return svc.views(ctx, enrollments, nil, true, true), nil
}
