package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/teacher"
)

func TestTeachers_directory(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 2)
	stack.CreateCourse(t, cr.teacher.ID, "Geometry")
	pending := stack.CreateAccount(t, "Pending", "pending@example.com", core.RoleStudent)
	stack.CreateEnrollment(t, pending.ID, cr.course.ID, enrollment.StatusPending)

	req, rec := newRequest(http.MethodGet, "/teachers")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listings []teacher.Listing
	decodeInto(t, rec, "teachers", &listings)
	require.Len(t, listings, 2)
	counts := make(map[string]int)
	for _, l := range listings {
		assert.Equal(t, core.RoleTeacher, l.Role)
		counts[l.ID] = l.CourseCount
	}
	assert.Equal(t, map[string]int{cr.teacher.ID: 2, cr.other.ID: 0}, counts)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	t.Run("profile", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/teachers/"+cr.teacher.ID)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var p teacher.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, cr.teacher.ID, p.Teacher.ID)
		assert.Len(t, p.Courses, 2)
		assert.Equal(t, 2, p.TotalCourses)
		// pending students are not counted
		assert.Equal(t, 2, p.TotalStudents)
	})

	notFound := marshalObj(t, httpErr{Message: "teacher not found"})
	tests := []httpTest{
		{name: "student id", path: "/teachers/" + cr.students[0].ID, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unknown id", path: "/teachers/" + core.NewID(), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "malformed id", path: "/teachers/nope", wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestTeachers_dashboard(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 2)
	for i, email := range []string{"p1@example.com", "p2@example.com"} {
		s := stack.CreateAccount(t, "Pending", email, core.RoleStudent)
		stack.CreateEnrollment(t, s.ID, cr.course.ID, enrollment.StatusPending)
		if i == 0 {
			// enrolled elsewhere, only visible platform-wide
			other := stack.CreateCourse(t, cr.other.ID, "Physics")
			stack.CreateEnrollment(t, s.ID, other.ID, enrollment.StatusApproved)
		}
	}
	admin := stack.CreateAccount(t, "Admin", "admin@example.com", core.RoleAdmin)

	stats := func(t *testing.T, token string) teacher.Dashboard {
		req, rec := newAuthRequest(http.MethodGet, "/teachers/dashboard/stats", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var d teacher.Dashboard
		decodeInto(t, rec, "stats", &d)
		return d
	}

	t.Run("owner", func(t *testing.T) {
		d := stats(t, stack.Token(t, cr.teacher))
		assert.Equal(t, 1, d.TotalCourses)
		assert.Equal(t, 2, d.TotalStudents)
		assert.Equal(t, 2, d.PendingRequests)
		assert.Len(t, d.RecentEnrollments, 4)
	})
	t.Run("teacher without courses", func(t *testing.T) {
		fresh := stack.CreateAccount(t, "Fresh", "fresh@example.com", core.RoleTeacher)
		d := stats(t, stack.Token(t, fresh))
		assert.Equal(t, 0, d.TotalCourses)
		assert.Equal(t, 0, d.TotalStudents)
		assert.Equal(t, 0, d.PendingRequests)
		assert.Empty(t, d.RecentEnrollments)
	})
	t.Run("admin", func(t *testing.T) {
		d := stats(t, stack.Token(t, admin))
		assert.Equal(t, 2, d.TotalCourses)
		assert.Equal(t, 3, d.TotalStudents)
		assert.Equal(t, 2, d.PendingRequests)
		assert.Len(t, d.RecentEnrollments, 5)
	})

	tests := []httpTest{
		{name: "student", token: stack.Token(t, cr.students[0]), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Message: "permission denied"})},
		{name: "anonymous", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/teachers/dashboard/stats", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
