// Package teacher aggregates the public teacher directory and the teacher dashboard
// out of accounts, courses and enrollments.
package teacher

import (
	"context"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

const recentEnrollments = 5

var ErrNotFound = core.NewError(core.KindNotFound, "teacher not found")

type (
	AccountFinder interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
		Query(ctx context.Context, filter account.QueryFilter) ([]account.Account, error)
	}

	CourseFinder interface {
		Query(ctx context.Context, filter course.QueryFilter) ([]course.Course, error)
	}

	EnrollmentFinder interface {
		Count(ctx context.Context, filter enrollment.QueryFilter) (int, error)
		Recent(ctx context.Context, filter enrollment.QueryFilter, limit int) ([]enrollment.View, error)
	}

	Service struct {
		accounts    AccountFinder
		courses     CourseFinder
		enrollments EnrollmentFinder
		guard       *guard.Guard
	}
)

type (
	Listing struct {
		account.Account
		CourseCount int `json:"courseCount"`
	}

	Profile struct {
		Teacher       account.Account `json:"teacher"`
		Courses       []course.Course `json:"courses"`
		TotalCourses  int             `json:"totalCourses"`
		TotalStudents int             `json:"totalStudents"`
	}

	Dashboard struct {
		TotalCourses      int               `json:"totalCourses"`
		TotalStudents     int               `json:"totalStudents"`
		PendingRequests   int               `json:"pendingRequests"`
		RecentEnrollments []enrollment.View `json:"recentEnrollments"`
	}
)

func NewService(accounts AccountFinder, courses CourseFinder, enrollments EnrollmentFinder, g *guard.Guard) *Service {
	return &Service{accounts: accounts, courses: courses, enrollments: enrollments, guard: g}
}

// List returns every teacher along with the number of courses they teach.
func (svc *Service) List(ctx context.Context) ([]Listing, error) {
	teachers, err := svc.accounts.Query(ctx, account.QueryFilter{Role: core.RoleTeacher})
	if err != nil {
		return nil, err
	}
	courses, err := svc.courses.Query(ctx, course.QueryFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, c := range courses {
		counts[c.TeacherID]++
	}

	listings := make([]Listing, 0, len(teachers))
	for _, t := range teachers {
		listings = append(listings, Listing{Account: t, CourseCount: counts[t.ID]})
	}
	return listings, nil
}

// Get returns the profile of a teacher with their courses and student count.
func (svc *Service) Get(ctx context.Context, id string) (Profile, error) {
	if !core.IsID(id) {
		return Profile{}, ErrNotFound
	}
	t, err := svc.accounts.GetByID(ctx, id)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if !t.IsTeacher() {
		return Profile{}, ErrNotFound
	}

	courses, err := svc.courses.Query(ctx, course.QueryFilter{TeacherID: t.ID})
	if err != nil {
		return Profile{}, err
	}
	students, err := svc.enrollments.Count(ctx, enrollment.QueryFilter{
		CourseIDs: courseIDs(courses),
		Status:    enrollment.StatusApproved,
	})
	if err != nil {
		return Profile{}, err
	}
	return Profile{Teacher: t, Courses: courses, TotalCourses: len(courses), TotalStudents: students}, nil
}

// Dashboard summarizes the teaching activity of the principal. Admins get platform-wide figures.
func (svc *Service) Dashboard(ctx context.Context, p core.Principal) (Dashboard, error) {
	if err := svc.guard.Authorize(p, guard.DashboardRead); err != nil {
		return Dashboard{}, err
	}
	filter := course.QueryFilter{}
	if !p.IsAdmin() {
		filter.TeacherID = p.ID
	}
	courses, err := svc.courses.Query(ctx, filter)
	if err != nil {
		return Dashboard{}, err
	}

	var ids []string
	if !p.IsAdmin() {
		ids = courseIDs(courses)
	}
	d := Dashboard{TotalCourses: len(courses)}
	if d.TotalStudents, err = svc.enrollments.Count(ctx, enrollment.QueryFilter{CourseIDs: ids, Status: enrollment.StatusApproved}); err != nil {
		return Dashboard{}, err
	}
	if d.PendingRequests, err = svc.enrollments.Count(ctx, enrollment.QueryFilter{CourseIDs: ids, Status: enrollment.StatusPending}); err != nil {
		return Dashboard{}, err
	}
	if d.RecentEnrollments, err = svc.enrollments.Recent(ctx, enrollment.QueryFilter{CourseIDs: ids}, recentEnrollments); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// courseIDs never returns nil so that an empty result matches no enrollment.
func courseIDs(courses []course.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}
