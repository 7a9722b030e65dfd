// Package testutil wires the application on in-memory storage and provides fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
	"github.com/ThumulaGamage/EduPlatform-backend/core/teacher"
	emailsvc "github.com/ThumulaGamage/EduPlatform-backend/services/email"
	logsvc "github.com/ThumulaGamage/EduPlatform-backend/services/logger"
	inmemdb "github.com/ThumulaGamage/EduPlatform-backend/storage/database/inmem"
	memstore "github.com/ThumulaGamage/EduPlatform-backend/storage/files/memory"
)

const Password = "s3cure-Passw0rd"

// Stack is the whole application wired on in-memory storage.
type Stack struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Blobs      core.BlobStore
	Files      *memstore.Store
	Guard      *guard.Guard
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger
	Mailer     core.EmailService

	AccountRepo     account.Repository
	CourseRepo      course.Repository
	EnrollmentRepo  enrollment.Repository
	AssignmentRepo  assignment.Repository
	SubmissionRepo  assignment.SubmissionRepository
	MessageRepo     message.Repository
	ReviewRepo      review.Repository
	Tokens          *account.TokenIssuer
	AccountSvc      *account.Service
	CourseSvc       *course.Service
	EnrollmentSvc   *enrollment.Service
	AssignmentSvc   *assignment.Service
	MessageSvc      *message.Service
	ReviewSvc       *review.Service
	TeacherSvc      *teacher.Service
}

func NewConfig() *core.Config {
	return &core.Config{
		Env:                "test",
		TestMode:           true,
		AppName:            "EduPlatform",
		Build:              "test",
		SecretKey:          "test-secret",
		JWTExpirationDelta: 24 * time.Hour,
		FrontendBaseURL:    "http://localhost:3000",
		Email: core.EmailConfig{
			DefaultFromEmail: "noreply@eduplatform.test",
			DefaultFromName:  "EduPlatform",
		},
		Log: core.LogConfig{Level: "error", Format: "json"},
	}
}

// NewStack wires a fresh application. blobs replaces the in-memory blob store when given.
func NewStack(t testing.TB, blobs ...core.BlobStore) *Stack {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}

	s := &Stack{
		Conf:   NewConfig(),
		DB:     db,
		Files:  memstore.New(),
		Guard:  guard.MustNew(),
		Logger: logsvc.NewNopLogger(),
	}
	s.Blobs = s.Files
	if len(blobs) > 0 {
		s.Blobs = blobs[0]
	}
	s.Mailer = emailsvc.NewConsoleServiceMock(s.Conf)

	s.Validate, s.Translator = core.NewValidator()
	account.InitValidators(s.Validate, s.Translator)
	course.InitValidators(s.Validate, s.Translator)
	assignment.InitValidators(s.Validate, s.Translator)

	s.AccountRepo = inmemdb.NewAccountRepository(db)
	s.CourseRepo = inmemdb.NewCourseRepository(db)
	s.EnrollmentRepo = inmemdb.NewEnrollmentRepository(db)
	s.AssignmentRepo = inmemdb.NewAssignmentRepository(db)
	s.SubmissionRepo = inmemdb.NewSubmissionRepository(db)
	s.MessageRepo = inmemdb.NewMessageRepository(db)
	s.ReviewRepo = inmemdb.NewReviewRepository(db)

	s.Tokens = account.NewTokenIssuer(s.Conf.SecretKey, s.Conf.JWTExpirationDelta, s.Conf.AppName)
	s.AccountSvc = account.NewService(s.AccountRepo, s.Tokens, s.Validate)
	s.CourseSvc = course.NewService(s.CourseRepo, s.AccountSvc, s.Blobs, s.Guard, s.Validate, s.Logger)
	s.EnrollmentSvc = enrollment.NewService(s.EnrollmentRepo, s.CourseSvc, s.AccountSvc, s.Guard, s.Validate, s.Mailer, s.Logger)
	s.AssignmentSvc = assignment.NewService(assignment.Deps{
		Assignments: s.AssignmentRepo,
		Submissions: s.SubmissionRepo,
		Courses:     s.CourseSvc,
		Enrollments: s.EnrollmentSvc,
		Accounts:    s.AccountSvc,
		Blobs:       s.Blobs,
		Guard:       s.Guard,
		Validate:    s.Validate,
		Mailer:      s.Mailer,
		Logger:      s.Logger,
	})
	s.MessageSvc = message.NewService(s.MessageRepo, s.CourseSvc, s.AccountSvc, s.Guard, s.Validate)
	s.ReviewSvc = review.NewService(s.ReviewRepo, s.CourseSvc, s.EnrollmentSvc, s.AccountSvc, s.Guard, s.Validate)
	s.TeacherSvc = teacher.NewService(s.AccountSvc, s.CourseSvc, s.EnrollmentSvc, s.Guard)

	s.CourseSvc.OnDelete(s.EnrollmentSvc.DeleteByCourse, s.AssignmentSvc.DeleteByCourse, s.ReviewSvc.DeleteByCourse)

	emailsvc.ResetSentMessages()
	return s
}

// FreezeTime makes core.Now return at until the test ends.
func FreezeTime(t testing.TB, at time.Time) {
	t.Helper()
	core.NowFunc = func() time.Time { return at }
	t.Cleanup(func() { core.NowFunc = time.Now })
}

// Token issues an access token for acc.
func (s *Stack) Token(t testing.TB, acc account.Account) string {
	t.Helper()
	token, err := s.Tokens.Issue(acc)
	if err != nil {
		t.Fatalf("Token(): %v", err)
	}
	return token
}

// CreateAccount stores an account with Password as password.
func (s *Stack) CreateAccount(t testing.TB, name, email, role string) account.Account {
	t.Helper()
	now := core.Now()
	acc := account.Account{
		Name:      name,
		Email:     email,
		Age:       30,
		Address:   "1 Main Street",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(Password); err != nil {
		t.Fatalf("CreateAccount(): %v", err)
	}
	acc, err := s.AccountRepo.Create(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount(): %v", err)
	}
	return acc
}

func (s *Stack) CreateCourse(t testing.TB, teacherID, title string) course.Course {
	t.Helper()
	now := core.Now()
	c, err := s.CourseRepo.Create(context.Background(), course.Course{
		Title:        title,
		Description:  title + " description",
		TeacherID:    teacherID,
		Duration:     "4 weeks",
		Level:        course.LevelBeginner,
		Category:     "programming",
		Lessons:      []course.Lesson{},
		Materials:    []course.Material{},
		Objectives:   []string{},
		Requirements: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return c
}

// CreateEnrollment stores an enrollment with the given status, bypassing the request workflow.
func (s *Stack) CreateEnrollment(t testing.TB, studentID, courseID, status string) enrollment.Enrollment {
	t.Helper()
	now := core.Now()
	e := enrollment.Enrollment{
		StudentID:        studentID,
		CourseID:         courseID,
		Status:           status,
		CompletedLessons: []string{},
		RequestedAt:      now,
		UpdatedAt:        now,
	}
	switch status {
	case enrollment.StatusApproved:
		e.ApprovedAt = &now
	case enrollment.StatusRejected:
		e.RejectedAt = &now
	}
	e, err := s.EnrollmentRepo.Create(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateEnrollment(): %v", err)
	}
	return e
}

func (s *Stack) CreateAssignment(t testing.TB, c course.Course, dueDate time.Time, allowLate bool, status ...string) assignment.Assignment {
	t.Helper()
	st := assignment.StatusPublished
	if len(status) > 0 {
		st = status[0]
	}
	now := core.Now()
	a, err := s.AssignmentRepo.Create(context.Background(), assignment.Assignment{
		CourseID:            c.ID,
		TeacherID:           c.TeacherID,
		Title:               "Homework",
		Description:         "Solve the exercises",
		MaxScore:            assignment.DefaultMaxScore,
		DueDate:             dueDate.UTC(),
		AllowLateSubmission: allowLate,
		Status:              st,
		Attachments:         []assignment.Attachment{},
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment(): %v", err)
	}
	return a
}
