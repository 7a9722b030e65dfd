package tests

import (
	"context"
	"encoding/json"
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
	testutil "github.com/ThumulaGamage/EduPlatform-backend/tests"
)

type classroom struct {
	teacher  account.Account
	other    account.Account
	students []account.Account
	outsider account.Account
	course   course.Course
}

// newClassroom creates a course with approved students and a student who is not enrolled.
func newClassroom(t *testing.T, stack *testutil.Stack, students int) classroom {
	cr := classroom{
		teacher:  stack.CreateAccount(t, "Owner", "owner@example.com", core.RoleTeacher),
		other:    stack.CreateAccount(t, "Other", "other@example.com", core.RoleTeacher),
		outsider: stack.CreateAccount(t, "Outsider", "outsider@example.com", core.RoleStudent),
	}
	cr.course = stack.CreateCourse(t, cr.teacher.ID, "Algebra")
	for i := 0; i < students; i++ {
		s := stack.CreateAccount(t, fmt.Sprintf("Student %d", i), fmt.Sprintf("s%d@example.com", i), core.RoleStudent)
		stack.CreateEnrollment(t, s.ID, cr.course.ID, enrollment.StatusApproved)
		cr.students = append(cr.students, s)
	}
	return cr
}

func submit(t *testing.T, app http.Handler, token, assignmentID string) *submissionResult {
	req, rec := newAuthRequest(http.MethodPost, "/api/submissions", token,
		marshalObj(t, assignment.NewSubmission{AssignmentID: assignmentID, Content: "my answer"}))
	app.ServeHTTP(rec, req)
	res := &submissionResult{code: rec.Code, body: rec.Body.String()}
	if rec.Code == http.StatusCreated {
		decodeInto(t, rec, "submission", &res.submission)
	}
	return res
}

type submissionResult struct {
	code       int
	body       string
	submission assignment.Submission
}

func TestAssignments_create(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 1)
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	body := func(courseID string) []byte {
		return []byte(fmt.Sprintf(`{"courseId":%q,"title":"HW","description":"Do it","dueDate":%q}`, courseID, due.Format(time.RFC3339)))
	}
	tests := []httpTest{
		{name: "foreign teacher", token: stack.Token(t, cr.other), body: body(cr.course.ID), wantCode: http.StatusForbidden},
		{name: "student", token: stack.Token(t, cr.students[0]), body: body(cr.course.ID), wantCode: http.StatusForbidden},
		{name: "unknown course", token: stack.Token(t, cr.teacher), body: body(core.NewID()), wantCode: http.StatusNotFound},
		{
			name:     "zero max score",
			token:    stack.Token(t, cr.teacher),
			body:     []byte(fmt.Sprintf(`{"courseId":%q,"title":"HW","description":"Do it","maxScore":0,"dueDate":%q}`, cr.course.ID, due.Format(time.RFC3339))),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad status",
			token:    stack.Token(t, cr.teacher),
			body:     []byte(fmt.Sprintf(`{"courseId":%q,"title":"HW","description":"Do it","status":"archived","dueDate":%q}`, cr.course.ID, due.Format(time.RFC3339))),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing due date",
			token:    stack.Token(t, cr.teacher),
			body:     []byte(fmt.Sprintf(`{"courseId":%q,"title":"HW","description":"Do it"}`, cr.course.ID)),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/assignments", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/assignments", stack.Token(t, cr.teacher), body(cr.course.ID))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a assignment.Assignment
		decodeInto(t, rec, "assignment", &a)
		assert.Equal(t, float64(assignment.DefaultMaxScore), a.MaxScore)
		assert.False(t, a.AllowLateSubmission)
		assert.Equal(t, assignment.StatusPublished, a.Status)
		assert.Equal(t, cr.teacher.ID, a.TeacherID)
		assert.Empty(t, a.Attachments)
	})

	t.Run("multipart with attachments", func(t *testing.T) {
		before := stack.Files.Len()
		fields := map[string]string{
			"courseId":            cr.course.ID,
			"title":               "Essay",
			"description":         "Write an essay",
			"maxScore":            "20",
			"dueDate":             due.Format(time.RFC3339),
			"allowLateSubmission": "true",
			"status":              "draft",
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/assignments", stack.Token(t, cr.teacher), fields,
			formFile{field: "attachments", filename: "brief.txt", contentType: "text/plain", content: []byte("Write 500 words.\n")},
			formFile{field: "attachments", filename: "rubric.pdf", contentType: "application/pdf", content: pdfContent},
		)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a assignment.Assignment
		decodeInto(t, rec, "assignment", &a)
		assert.Equal(t, float64(20), a.MaxScore)
		assert.True(t, a.AllowLateSubmission)
		assert.Equal(t, assignment.StatusDraft, a.Status)
		assert.True(t, due.Equal(a.DueDate))
		require.Len(t, a.Attachments, 2)
		assert.Equal(t, "text/plain", a.Attachments[0].MimeType)
		assert.Equal(t, "application/pdf", a.Attachments[1].MimeType)
		assert.Equal(t, before+2, stack.Files.Len())
	})

	t.Run("disallowed attachment", func(t *testing.T) {
		before := stack.Files.Len()
		fields := map[string]string{
			"courseId":    cr.course.ID,
			"title":       "Video",
			"description": "Watch it",
			"dueDate":     due.Format(time.RFC3339),
		}
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/assignments", stack.Token(t, cr.teacher), fields,
			formFile{field: "attachments", filename: "clip.gif", contentType: "image/gif", content: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")},
		)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Message: `file type of "clip.gif" is not allowed`})}, rec)
		assert.Equal(t, before, stack.Files.Len())
	})
}

func TestSubmissions_lateness(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 4)

	// tokens are checked against the real clock: keep the frozen clock in the past
	due := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	strict := stack.CreateAssignment(t, cr.course, due, false)
	lenient := stack.CreateAssignment(t, cr.course, due, true)

	t.Run("one second before the deadline", func(t *testing.T) {
		testutil.FreezeTime(t, due.Add(-time.Second))
		res := submit(t, app, stack.Token(t, cr.students[0]), strict.ID)
		require.Equal(t, http.StatusCreated, res.code, res.body)
		assert.False(t, res.submission.IsLate)
		assert.True(t, due.Add(-time.Second).Equal(res.submission.SubmittedAt))
	})

	t.Run("at the deadline", func(t *testing.T) {
		testutil.FreezeTime(t, due)
		res := submit(t, app, stack.Token(t, cr.students[1]), strict.ID)
		require.Equal(t, http.StatusCreated, res.code, res.body)
		assert.False(t, res.submission.IsLate)
	})

	t.Run("one second after the deadline", func(t *testing.T) {
		testutil.FreezeTime(t, due.Add(time.Second))
		res := submit(t, app, stack.Token(t, cr.students[2]), strict.ID)
		assert.Equal(t, http.StatusBadRequest, res.code)
		assert.JSONEq(t, `{"message":"deadline has passed and late submissions are not allowed"}`, res.body)

		_, err := stack.SubmissionRepo.Find(context.Background(), strict.ID, cr.students[2].ID)
		assert.True(t, core.IsKind(err, core.KindNotFound))
	})

	t.Run("late submissions allowed", func(t *testing.T) {
		testutil.FreezeTime(t, due.Add(time.Second))
		res := submit(t, app, stack.Token(t, cr.students[3]), lenient.ID)
		require.Equal(t, http.StatusCreated, res.code, res.body)
		assert.True(t, res.submission.IsLate)
	})

	t.Run("update after the deadline", func(t *testing.T) {
		testutil.FreezeTime(t, due.Add(-time.Minute))
		res := submit(t, app, stack.Token(t, cr.students[0]), lenient.ID)
		require.Equal(t, http.StatusCreated, res.code, res.body)
		require.False(t, res.submission.IsLate)

		testutil.FreezeTime(t, due.Add(time.Minute))
		req, rec := newAuthRequest(http.MethodPut, "/api/submissions/"+res.submission.ID, stack.Token(t, cr.students[0]), []byte(`{"content":"revised"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s assignment.Submission
		decodeInto(t, rec, "submission", &s)
		assert.True(t, s.IsLate)
		assert.Equal(t, "revised", s.Content)

		// ungraded work on the strict assignment stays editable, flagged late
		strictSub, err := stack.SubmissionRepo.Find(context.Background(), strict.ID, cr.students[0].ID)
		require.NoError(t, err)
		req, rec = newAuthRequest(http.MethodPut, "/api/submissions/"+strictSub.ID, stack.Token(t, cr.students[0]), []byte(`{"content":"edited late"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeInto(t, rec, "submission", &s)
		assert.True(t, s.IsLate)
		assert.Equal(t, "edited late", s.Content)
	})
}

func TestSubmissions_create(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 1)
	a := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false)
	draft := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false, assignment.StatusDraft)
	token := stack.Token(t, cr.students[0])

	res := submit(t, app, stack.Token(t, cr.outsider), a.ID)
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.JSONEq(t, `{"message":"you must be enrolled in this course"}`, res.body)

	// pending enrollments do not count
	stack.CreateEnrollment(t, cr.outsider.ID, cr.course.ID, enrollment.StatusPending)
	res = submit(t, app, stack.Token(t, cr.outsider), a.ID)
	assert.Equal(t, http.StatusForbidden, res.code)

	res = submit(t, app, stack.Token(t, cr.teacher), a.ID)
	assert.Equal(t, http.StatusForbidden, res.code)

	res = submit(t, app, token, draft.ID)
	assert.Equal(t, http.StatusNotFound, res.code)

	res = submit(t, app, token, a.ID)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.Equal(t, cr.course.ID, res.submission.CourseID)
	assert.Empty(t, res.submission.Attachments)

	res = submit(t, app, token, a.ID)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.JSONEq(t, `{"message":"you have already submitted this assignment"}`, res.body)

	subs, err := stack.SubmissionRepo.Query(context.Background(), assignment.SubmissionFilter{AssignmentID: a.ID})
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubmissions_grade(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 1)
	a := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false)
	sToken := stack.Token(t, cr.students[0])
	tToken := stack.Token(t, cr.teacher)

	res := submit(t, app, sToken, a.ID)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	path := "/api/submissions/" + res.submission.ID

	outOfRange := marshalObj(t, httpErr{Message: "score must be between 0 and 100"})
	tests := []httpTest{
		{name: "foreign teacher", token: stack.Token(t, cr.other), body: []byte(`{"score":50}`), wantCode: http.StatusForbidden},
		{name: "student", token: sToken, body: []byte(`{"score":100}`), wantCode: http.StatusForbidden},
		{name: "missing score", token: tToken, body: []byte(`{"feedback":"?"}`), wantCode: http.StatusBadRequest},
		{name: "negative", token: tToken, body: []byte(`{"score":-1}`), wantCode: http.StatusBadRequest, wantData: outOfRange},
		{name: "above max", token: tToken, body: []byte(`{"score":100.5}`), wantCode: http.StatusBadRequest, wantData: outOfRange},
		{name: "graded", token: tToken, body: []byte(`{"score":70,"feedback":"Good"}`), wantCode: http.StatusOK},
		{name: "out of range once graded", token: tToken, body: []byte(`{"score":101}`), wantCode: http.StatusBadRequest, wantData: outOfRange},
		{name: "graded again", token: tToken, body: []byte(`{"score":90,"feedback":"Better"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path+"/grade", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the latest grade wins
	req, rec := newAuthRequest(http.MethodGet, path, sToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s assignment.Submission
	decodeInto(t, rec, "submission", &s)
	assert.Equal(t, assignment.SubmissionGraded, s.Status)
	require.NotNil(t, s.Grade)
	assert.Equal(t, float64(90), s.Grade.Score)
	assert.Equal(t, "Better", s.Grade.Feedback)

	// grading locks the submission for the student
	graded := marshalObj(t, httpErr{Message: "cannot modify a graded submission"})
	req, rec = newAuthRequest(http.MethodPut, path, sToken, []byte(`{"content":"changed my mind"}`))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: graded}, rec)

	req, rec = newAuthRequest(http.MethodDelete, path, sToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: graded}, rec)
}

func TestSubmissions_ownership(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 2)
	a := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false)

	res := submit(t, app, stack.Token(t, cr.students[0]), a.ID)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	path := "/api/submissions/" + res.submission.ID

	req, rec := newAuthRequest(http.MethodGet, path, stack.Token(t, cr.students[1]))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, path, stack.Token(t, cr.other))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, path, stack.Token(t, cr.teacher))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, path, stack.Token(t, cr.students[1]), []byte(`{"content":"hijack"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/api/submissions/my-submissions", stack.Token(t, cr.students[0]))
	app.ServeHTTP(rec, req)
	var subs []assignment.Submission
	decodeInto(t, rec, "submissions", &subs)
	require.Len(t, subs, 1)
	assert.Equal(t, res.submission.ID, subs[0].ID)

	req, rec = newAuthRequest(http.MethodGet, "/api/assignments/"+a.ID+"/submissions", stack.Token(t, cr.teacher))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report assignment.SubmissionsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TotalSubmissions)
	require.NotNil(t, report.Submissions[0].Student)
	assert.Equal(t, cr.students[0].Email, report.Submissions[0].Student.Email)

	req, rec = newAuthRequest(http.MethodGet, "/api/assignments/"+a.ID+"/submissions", stack.Token(t, cr.other))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, path, stack.Token(t, cr.students[0]))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, path, stack.Token(t, cr.students[0]))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignments_visibility(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 1)
	published := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false)
	draft := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false, assignment.StatusDraft)
	closed := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false, assignment.StatusClosed)
	sToken := stack.Token(t, cr.students[0])

	res := submit(t, app, sToken, published.ID)
	require.Equal(t, http.StatusCreated, res.code, res.body)

	list := func(token string) []assignment.StudentView {
		req, rec := newAuthRequest(http.MethodGet, "/api/assignments/course/"+cr.course.ID, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var views []assignment.StudentView
		decodeInto(t, rec, "assignments", &views)
		return views
	}

	assert.Len(t, list(stack.Token(t, cr.teacher)), 3)

	views := list(sToken)
	require.Len(t, views, 2)
	byID := map[string]assignment.StudentView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.NotContains(t, byID, draft.ID)
	assert.True(t, byID[published.ID].HasSubmitted)
	require.NotNil(t, byID[published.ID].MySubmission)
	assert.Equal(t, res.submission.ID, byID[published.ID].MySubmission.ID)
	assert.False(t, byID[closed.ID].HasSubmitted)
	assert.Nil(t, byID[closed.ID].MySubmission)

	req, rec := newAuthRequest(http.MethodGet, "/api/assignments/course/"+cr.course.ID, stack.Token(t, cr.outsider))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/api/assignments/"+draft.ID, sToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	retrieve := func(token, id string) (int, assignment.StudentView) {
		req, rec := newAuthRequest(http.MethodGet, "/api/assignments/"+id, token)
		app.ServeHTTP(rec, req)
		var v assignment.StudentView
		if rec.Code == http.StatusOK {
			decodeInto(t, rec, "assignment", &v)
		}
		return rec.Code, v
	}

	code, v := retrieve(sToken, published.ID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, published.ID, v.ID)
	assert.True(t, v.HasSubmitted)
	require.NotNil(t, v.MySubmission)
	assert.Equal(t, res.submission.ID, v.MySubmission.ID)

	code, v = retrieve(sToken, closed.ID)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, v.HasSubmitted)
	assert.Nil(t, v.MySubmission)

	req, rec = newAuthRequest(http.MethodGet, "/api/assignments/"+published.ID, stack.Token(t, cr.outsider))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"you must be enrolled in this course"}`, rec.Body.String())

	code, _ = retrieve(stack.Token(t, cr.other), published.ID)
	assert.Equal(t, http.StatusForbidden, code)

	req, rec = newAuthRequest(http.MethodGet, "/api/assignments/"+draft.ID, stack.Token(t, cr.teacher))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssignments_update(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 1)
	a := stack.CreateAssignment(t, cr.course, time.Now().Add(time.Hour), false, assignment.StatusClosed)
	tToken := stack.Token(t, cr.teacher)
	path := "/api/assignments/" + a.ID

	req, rec := newAuthRequest(http.MethodPut, path, stack.Token(t, cr.other), []byte(`{"title":"Mine now"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// statuses are not a state machine: closed may go back to published
	req, rec = newAuthRequest(http.MethodPut, path, tToken, []byte(`{"status":"published","maxScore":50,"allowLateSubmission":true}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got assignment.Assignment
	decodeInto(t, rec, "assignment", &got)
	assert.Equal(t, assignment.StatusPublished, got.Status)
	assert.Equal(t, float64(50), got.MaxScore)
	assert.True(t, got.AllowLateSubmission)
	assert.Equal(t, a.Title, got.Title)

	req, rec = newAuthRequest(http.MethodPut, path, tToken, []byte(`{"status":"archived"}`))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// deleting the assignment deletes its submissions
	res := submit(t, app, stack.Token(t, cr.students[0]), a.ID)
	require.Equal(t, http.StatusCreated, res.code, res.body)

	req, rec = newAuthRequest(http.MethodDelete, path, stack.Token(t, cr.other))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, path, tToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := stack.SubmissionRepo.GetByID(context.Background(), res.submission.ID)
	assert.True(t, core.IsKind(err, core.KindNotFound))

	req, rec = newAuthRequest(http.MethodGet, path, tToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
