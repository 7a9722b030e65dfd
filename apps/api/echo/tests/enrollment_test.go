package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	emailsvc "github.com/ThumulaGamage/EduPlatform-backend/services/email"
	testutil "github.com/ThumulaGamage/EduPlatform-backend/tests"
)

func TestEndToEnd(t *testing.T) {
	app, _ := setup(t)

	register := func(name, email, role string) (string, account.Account) {
		req, rec := newRequest(http.MethodPost, "/auth/register", marshalObj(t, account.NewAccount{
			Name:     name,
			Email:    email,
			Password: testutil.Password,
			Age:      35,
			Address:  "Campus",
			Role:     role,
		}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var acc account.Account
		decodeInto(t, rec, "user", &acc)
		return decode(t, rec)["token"].(string), acc
	}
	tToken, teacher := register("Teacher", "teacher@example.com", core.RoleTeacher)
	sToken, student := register("Student", "student@example.com", "")

	// T creates course C
	req, rec := newAuthRequest(http.MethodPost, "/courses", tToken, marshalObj(t, course.NewCourse{
		Title:       "Intro to Go",
		Description: "Types, functions and goroutines",
		Duration:    "4 weeks",
		Level:       course.LevelBeginner,
		Category:    "programming",
	}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c course.Course
	decodeInto(t, rec, "course", &c)
	assert.Equal(t, teacher.ID, c.TeacherID)

	// S requests enrollment in C
	req, rec = newAuthRequest(http.MethodPost, "/enrollments/request", sToken, marshalObj(t, enrollment.RequestInput{CourseID: c.ID}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e enrollment.Enrollment
	decodeInto(t, rec, "enrollment", &e)
	assert.Equal(t, enrollment.StatusPending, e.Status)
	assert.Equal(t, student.ID, e.StudentID)

	// T approves it
	req, rec = newAuthRequest(http.MethodPut, "/enrollments/"+e.ID+"/approve", tToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, "enrollment", &e)
	assert.Equal(t, enrollment.StatusApproved, e.Status)
	require.NotNil(t, e.ApprovedAt)

	// S updates progress
	req, rec = newAuthRequest(http.MethodPut, "/enrollments/"+e.ID+"/progress", sToken, []byte(`{"progress":50}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, "enrollment", &e)
	assert.Equal(t, 50, e.Progress)

	// T creates assignment A
	due := time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second)
	req, rec = newAuthRequest(http.MethodPost, "/api/assignments", tToken,
		[]byte(fmt.Sprintf(`{"courseId":%q,"title":"Homework 1","description":"Write a CLI","maxScore":100,"dueDate":%q}`,
			c.ID, due.Format(time.RFC3339))))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a assignment.Assignment
	decodeInto(t, rec, "assignment", &a)
	assert.Equal(t, float64(100), a.MaxScore)
	assert.True(t, due.Equal(a.DueDate))
	assert.Equal(t, assignment.StatusPublished, a.Status)

	// S submits to A
	req, rec = newAuthRequest(http.MethodPost, "/api/submissions", sToken,
		marshalObj(t, assignment.NewSubmission{AssignmentID: a.ID, Content: "package main"}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s assignment.Submission
	decodeInto(t, rec, "submission", &s)
	assert.False(t, s.IsLate)
	assert.Equal(t, assignment.SubmissionSubmitted, s.Status)

	// T grades it
	req, rec = newAuthRequest(http.MethodPost, "/api/submissions/"+s.ID+"/grade", tToken, []byte(`{"score":85,"feedback":"Nice work"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, "submission", &s)
	assert.Equal(t, assignment.SubmissionGraded, s.Status)
	require.NotNil(t, s.Grade)
	assert.Equal(t, float64(85), s.Grade.Score)
	assert.Equal(t, teacher.ID, s.Grade.GradedBy)

	// the student was told about the approval and the grade
	sent := emailsvc.SentMessages()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		require.Len(t, msg.To, 1)
		assert.Equal(t, student.Email, msg.To[0].Address)
	}
	assert.Contains(t, sent[0].Subject, "Enrollment approved")
}

func TestEnrollments_request(t *testing.T) {
	app, stack := setup(t)
	teacher := stack.CreateAccount(t, "Tea", "tea@example.com", core.RoleTeacher)
	student := stack.CreateAccount(t, "Stu", "stu@example.com", core.RoleStudent)
	c := stack.CreateCourse(t, teacher.ID, "Algebra")
	sToken := stack.Token(t, student)

	tests := []httpTest{
		{
			name:     "teacher",
			token:    stack.Token(t, teacher),
			body:     marshalObj(t, enrollment.RequestInput{CourseID: c.ID}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown course",
			token:    sToken,
			body:     marshalObj(t, enrollment.RequestInput{CourseID: core.NewID()}),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Message: "course not found"}),
		},
		{
			name:     "malformed course id",
			token:    sToken,
			body:     marshalObj(t, enrollment.RequestInput{CourseID: "abc"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "first request",
			token:    sToken,
			body:     marshalObj(t, enrollment.RequestInput{CourseID: c.ID}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "second request",
			token:    sToken,
			body:     marshalObj(t, enrollment.RequestInput{CourseID: c.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "Already pending. Cannot request again."}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/enrollments/request", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	n, err := stack.EnrollmentSvc.Count(context.Background(), enrollment.QueryFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t.Run("after rejection", func(t *testing.T) {
		other := stack.CreateCourse(t, teacher.ID, "Geometry")
		stack.CreateEnrollment(t, student.ID, other.ID, enrollment.StatusRejected)

		req, rec := newAuthRequest(http.MethodPost, "/enrollments/request", sToken, marshalObj(t, enrollment.RequestInput{CourseID: other.ID}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Message: "Already rejected. Cannot request again."})}, rec)
	})
}

func TestEnrollments_decide(t *testing.T) {
	app, stack := setup(t)
	admin := stack.CreateAccount(t, "Root", "root@example.com", core.RoleAdmin)
	owner := stack.CreateAccount(t, "Owner", "owner@example.com", core.RoleTeacher)
	other := stack.CreateAccount(t, "Other", "other@example.com", core.RoleTeacher)
	s1 := stack.CreateAccount(t, "S1", "s1@example.com", core.RoleStudent)
	s2 := stack.CreateAccount(t, "S2", "s2@example.com", core.RoleStudent)
	c := stack.CreateCourse(t, owner.ID, "Algebra")
	e1 := stack.CreateEnrollment(t, s1.ID, c.ID, enrollment.StatusPending)
	e2 := stack.CreateEnrollment(t, s2.ID, c.ID, enrollment.StatusPending)

	tests := []httpTest{
		{
			name:     "foreign teacher",
			method:   http.MethodPut,
			path:     "/enrollments/" + e1.ID + "/approve",
			token:    stack.Token(t, other),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student",
			method:   http.MethodPut,
			path:     "/enrollments/" + e1.ID + "/approve",
			token:    stack.Token(t, s1),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown enrollment",
			method:   http.MethodPut,
			path:     "/enrollments/" + core.NewID() + "/approve",
			token:    stack.Token(t, owner),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Message: "enrollment not found"}),
		},
		{
			name:     "owner approves",
			method:   http.MethodPut,
			path:     "/enrollments/" + e1.ID + "/approve",
			token:    stack.Token(t, owner),
			wantCode: http.StatusOK,
		},
		{
			name:     "approve twice",
			method:   http.MethodPut,
			path:     "/enrollments/" + e1.ID + "/approve",
			token:    stack.Token(t, owner),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "Enrollment is already approved"}),
		},
		{
			name:     "reject approved",
			method:   http.MethodPut,
			path:     "/enrollments/" + e1.ID + "/reject",
			token:    stack.Token(t, owner),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "Enrollment is already approved"}),
		},
		{
			name:     "admin rejects",
			method:   http.MethodPut,
			path:     "/enrollments/" + e2.ID + "/reject",
			token:    stack.Token(t, admin),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	got, err := stack.EnrollmentSvc.Get(context.Background(), e2.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusRejected, got.Status)
	assert.NotNil(t, got.RejectedAt)
	assert.Nil(t, got.ApprovedAt)
}

func TestEnrollments_progress(t *testing.T) {
	app, stack := setup(t)
	owner := stack.CreateAccount(t, "Owner", "owner@example.com", core.RoleTeacher)
	other := stack.CreateAccount(t, "Other", "other@example.com", core.RoleTeacher)
	student := stack.CreateAccount(t, "Stu", "stu@example.com", core.RoleStudent)
	intruder := stack.CreateAccount(t, "Intruder", "intruder@example.com", core.RoleStudent)
	c := stack.CreateCourse(t, owner.ID, "Algebra")
	c, err := stack.CourseSvc.AddLesson(context.Background(), owner.Principal(), c.ID, course.NewLesson{Title: "Lesson 1", Order: 1})
	require.NoError(t, err)
	lessonID := c.Lessons[0].ID

	approved := stack.CreateEnrollment(t, student.ID, c.ID, enrollment.StatusApproved)
	pending := stack.CreateEnrollment(t, intruder.ID, c.ID, enrollment.StatusPending)
	sToken := stack.Token(t, student)

	notApproved := marshalObj(t, httpErr{Message: "enrollment is not approved"})
	outOfRange := marshalObj(t, httpErr{Message: "progress must be between 0 and 100"})

	tests := []httpTest{
		{name: "missing progress", path: approved.ID, token: sToken, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "negative", path: approved.ID, token: sToken, body: []byte(`{"progress":-1}`), wantCode: http.StatusBadRequest, wantData: outOfRange},
		{name: "above 100", path: approved.ID, token: sToken, body: []byte(`{"progress":101}`), wantCode: http.StatusBadRequest, wantData: outOfRange},
		{name: "lower bound", path: approved.ID, token: sToken, body: []byte(`{"progress":0}`), wantCode: http.StatusOK},
		{name: "upper bound", path: approved.ID, token: sToken, body: []byte(`{"progress":100}`), wantCode: http.StatusOK},
		{name: "course teacher", path: approved.ID, token: stack.Token(t, owner), body: []byte(`{"progress":70}`), wantCode: http.StatusOK},
		{name: "foreign teacher", path: approved.ID, token: stack.Token(t, other), body: []byte(`{"progress":70}`), wantCode: http.StatusForbidden},
		{name: "another student", path: approved.ID, token: stack.Token(t, intruder), body: []byte(`{"progress":70}`), wantCode: http.StatusForbidden},
		{name: "pending", path: pending.ID, token: stack.Token(t, intruder), body: []byte(`{"progress":10}`), wantCode: http.StatusBadRequest, wantData: notApproved},
		{name: "pending out of range", path: pending.ID, token: stack.Token(t, intruder), body: []byte(`{"progress":300}`), wantCode: http.StatusBadRequest, wantData: outOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/enrollments/"+tt.path+"/progress", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	got, err := stack.EnrollmentSvc.Get(context.Background(), approved.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, got.Progress)

	t.Run("lessons", func(t *testing.T) {
		path := "/enrollments/" + approved.ID
		body := marshalObj(t, enrollment.LessonInput{LessonID: lessonID})

		var e enrollment.Enrollment
		for i := 0; i < 2; i++ { // idempotent
			req, rec := newAuthRequest(http.MethodPut, path+"/complete-lesson", sToken, body)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			decodeInto(t, rec, "enrollment", &e)
			assert.Equal(t, []string{lessonID}, e.CompletedLessons)
		}

		req, rec := newAuthRequest(http.MethodPut, path+"/complete-lesson", sToken, marshalObj(t, enrollment.LessonInput{LessonID: core.NewID()}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Message: "lesson not found"})}, rec)

		for i := 0; i < 2; i++ {
			req, rec = newAuthRequest(http.MethodPut, path+"/uncomplete-lesson", sToken, body)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			decodeInto(t, rec, "enrollment", &e)
			assert.Empty(t, e.CompletedLessons)
		}

		req, rec = newAuthRequest(http.MethodPut, "/enrollments/"+pending.ID+"/complete-lesson", stack.Token(t, intruder), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: notApproved}, rec)
	})
}

func TestEnrollments_lists(t *testing.T) {
	app, stack := setup(t)
	admin := stack.CreateAccount(t, "Root", "root@example.com", core.RoleAdmin)
	t1 := stack.CreateAccount(t, "T1", "t1@example.com", core.RoleTeacher)
	t2 := stack.CreateAccount(t, "T2", "t2@example.com", core.RoleTeacher)
	s1 := stack.CreateAccount(t, "S1", "s1@example.com", core.RoleStudent)
	s2 := stack.CreateAccount(t, "S2", "s2@example.com", core.RoleStudent)
	c1 := stack.CreateCourse(t, t1.ID, "Algebra")
	c2 := stack.CreateCourse(t, t2.ID, "Biology")
	stack.CreateEnrollment(t, s1.ID, c1.ID, enrollment.StatusPending)
	stack.CreateEnrollment(t, s2.ID, c1.ID, enrollment.StatusApproved)
	stack.CreateEnrollment(t, s1.ID, c2.ID, enrollment.StatusPending)

	list := func(path, token string) []enrollment.View {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var views []enrollment.View
		decodeInto(t, rec, "enrollments", &views)
		return views
	}

	mine := list("/enrollments/my-enrollments", stack.Token(t, s1))
	require.Len(t, mine, 2)
	for _, v := range mine {
		require.NotNil(t, v.Course)
		assert.Equal(t, v.CourseID, v.Course.ID)
	}

	pending := list("/enrollments/pending", stack.Token(t, t1))
	require.Len(t, pending, 1)
	assert.Equal(t, s1.ID, pending[0].StudentID)
	require.NotNil(t, pending[0].Student)
	assert.Equal(t, "s1@example.com", pending[0].Student.Email)

	assert.Len(t, list("/enrollments/pending", stack.Token(t, admin)), 2)

	students := list("/enrollments/my-students", stack.Token(t, t1))
	require.Len(t, students, 1)
	assert.Equal(t, s2.ID, students[0].StudentID)

	assert.Len(t, list("/enrollments/course/"+c1.ID, stack.Token(t, t1)), 2)

	req, rec := newAuthRequest(http.MethodGet, "/enrollments/course/"+c1.ID, stack.Token(t, t2))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/enrollments/pending", stack.Token(t, s1))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newRequest(http.MethodGet, "/enrollments/my-enrollments")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
