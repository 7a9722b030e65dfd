package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
	testutil "github.com/ThumulaGamage/EduPlatform-backend/tests"
)

func reviewBody(t *testing.T, courseID string, rating int, text string) []byte {
	return marshalObj(t, review.Input{CourseID: courseID, Rating: &rating, Text: text})
}

func TestReviews_createOrUpdate(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 1)
	sToken := stack.Token(t, cr.students[0])
	pending := stack.CreateAccount(t, "Pending", "pending@example.com", core.RoleStudent)
	stack.CreateEnrollment(t, pending.ID, cr.course.ID, enrollment.StatusPending)

	tests := []httpTest{
		{name: "not enrolled", token: stack.Token(t, cr.outsider), body: reviewBody(t, cr.course.ID, 4, "Great course overall"), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Message: "you must be enrolled in this course to review it"})},
		{name: "pending enrollment", token: stack.Token(t, pending), body: reviewBody(t, cr.course.ID, 4, "Great course overall"), wantCode: http.StatusForbidden},
		{name: "teacher", token: stack.Token(t, cr.teacher), body: reviewBody(t, cr.course.ID, 5, "My own course is great"), wantCode: http.StatusForbidden},
		{name: "rating too low", token: sToken, body: reviewBody(t, cr.course.ID, 0, "Great course overall"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "rating must be between 1 and 5"})},
		{name: "rating too high", token: sToken, body: reviewBody(t, cr.course.ID, 6, "Great course overall"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Message: "rating must be between 1 and 5"})},
		{name: "not enrolled with a bad rating", token: stack.Token(t, cr.outsider), body: reviewBody(t, cr.course.ID, 9, "Great course overall"), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Message: "you must be enrolled in this course to review it"})},
		{name: "unknown course with a bad rating", token: sToken, body: reviewBody(t, core.NewID(), 9, "Great course overall"), wantCode: http.StatusNotFound},
		{name: "text too short", token: sToken, body: reviewBody(t, cr.course.ID, 3, "Meh"), wantCode: http.StatusBadRequest},
		{name: "unknown course", token: sToken, body: reviewBody(t, core.NewID(), 3, "Great course overall"), wantCode: http.StatusNotFound},
		{name: "anonymous", body: reviewBody(t, cr.course.ID, 3, "Great course overall"), wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/reviews", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	created := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	testutil.FreezeTime(t, created)
	req, rec := newAuthRequest(http.MethodPost, "/reviews", sToken, reviewBody(t, cr.course.ID, 3, "Decent but too short"))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Review created successfully", decode(t, rec)["message"])
	var first review.Review
	decodeInto(t, rec, "review", &first)

	updated := created.Add(time.Hour)
	testutil.FreezeTime(t, updated)
	req, rec = newAuthRequest(http.MethodPost, "/reviews", sToken, reviewBody(t, cr.course.ID, 5, "Much better after the update"))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Review updated successfully", decode(t, rec)["message"])
	var second review.Review
	decodeInto(t, rec, "review", &second)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Rating)
	assert.Equal(t, "Much better after the update", second.Text)
	assert.True(t, created.Equal(second.CreatedAt))
	assert.True(t, updated.Equal(second.UpdatedAt))

	reviews, err := stack.ReviewRepo.Query(context.Background(), cr.course.ID, "")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestReviews_course(t *testing.T) {
	app, stack := setup(t)
	cr := newClassroom(t, stack, 3)

	for i, rating := range []int{5, 4, 4} {
		req, rec := newAuthRequest(http.MethodPost, "/reviews", stack.Token(t, cr.students[i]), reviewBody(t, cr.course.ID, rating, "A review of the course"))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// public
	req, rec := newRequest(http.MethodGet, "/reviews/course/"+cr.course.ID)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res review.CourseReviews
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Reviews, 3)
	for _, v := range res.Reviews {
		require.NotNil(t, v.Student)
	}
	assert.Equal(t, 4.3, res.Stats.AverageRating)
	assert.Equal(t, 3, res.Stats.TotalReviews)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}, res.Stats.Distribution)

	req, rec = newRequest(http.MethodGet, "/reviews/course/"+core.NewID())
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("mine", func(t *testing.T) {
		token := stack.Token(t, cr.students[0])

		req, rec := newAuthRequest(http.MethodGet, "/reviews/my-review/"+cr.course.ID, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r review.Review
		decodeInto(t, rec, "review", &r)
		assert.Equal(t, 5, r.Rating)

		req, rec = newAuthRequest(http.MethodGet, "/reviews/my-reviews", token)
		app.ServeHTTP(rec, req)
		var views []review.View
		decodeInto(t, rec, "reviews", &views)
		require.Len(t, views, 1)
		require.NotNil(t, views[0].Course)
		assert.Equal(t, cr.course.ID, views[0].Course.ID)

		req, rec = newAuthRequest(http.MethodDelete, "/reviews/"+cr.course.ID, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/reviews/my-review/"+cr.course.ID, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Message: "review not found"})}, rec)

		req, rec = newAuthRequest(http.MethodDelete, "/reviews/"+cr.course.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
