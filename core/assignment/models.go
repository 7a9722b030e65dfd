package assignment

import (
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
)

// Assignment statuses. Owning teachers may set any of them at any time.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusClosed    = "closed"
)

// Submission statuses
const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
	SubmissionReturned  = "returned"
)

const (
	DefaultMaxScore = 100
	MaxAttachments  = 5
)

var Statuses = []string{StatusDraft, StatusPublished, StatusClosed}

// AttachmentPolicy restricts assignment and submission attachments.
var AttachmentPolicy = core.UploadPolicy{
	MaxSize: 10 << 20,
	AllowedTypes: []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"application/zip",
		"application/x-rar-compressed",
		"application/vnd.rar",
		"image/jpeg",
		"image/png",
	},
}

type (
	Attachment struct {
		Filename   string    `json:"filename" bson:"filename"`
		URL        string    `json:"url" bson:"url"`
		MimeType   string    `json:"mimeType" bson:"mimeType"`
		Size       int64     `json:"size" bson:"size"`
		StorageKey string    `json:"-" bson:"storageKey"`
		UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
	}

	Assignment struct {
		ID                  string       `json:"id" bson:"_id"`
		CourseID            string       `json:"courseId" bson:"courseId"`
		TeacherID           string       `json:"teacherId" bson:"teacherId"`
		Title               string       `json:"title" bson:"title"`
		Description         string       `json:"description" bson:"description"`
		Instructions        string       `json:"instructions" bson:"instructions"`
		MaxScore            float64      `json:"maxScore" bson:"maxScore"`
		DueDate             time.Time    `json:"dueDate" bson:"dueDate"`
		AllowLateSubmission bool         `json:"allowLateSubmission" bson:"allowLateSubmission"`
		Status              string       `json:"status" bson:"status"`
		Attachments         []Attachment `json:"attachments" bson:"attachments"`
		CreatedAt           time.Time    `json:"createdAt" bson:"createdAt"`
		UpdatedAt           time.Time    `json:"updatedAt" bson:"updatedAt"`
	}

	Grade struct {
		Score    float64   `json:"score" bson:"score"`
		Feedback string    `json:"feedback" bson:"feedback"`
		GradedBy string    `json:"gradedBy" bson:"gradedBy"`
		GradedAt time.Time `json:"gradedAt" bson:"gradedAt"`
	}

	Submission struct {
		ID           string       `json:"id" bson:"_id"`
		AssignmentID string       `json:"assignmentId" bson:"assignmentId"`
		StudentID    string       `json:"studentId" bson:"studentId"`
		CourseID     string       `json:"courseId" bson:"courseId"`
		Content      string       `json:"content" bson:"content"`
		Attachments  []Attachment `json:"attachments" bson:"attachments"`
		SubmittedAt  time.Time    `json:"submittedAt" bson:"submittedAt"`
		IsLate       bool         `json:"isLate" bson:"isLate"`
		Status       string       `json:"status" bson:"status"`
		Grade        *Grade       `json:"grade,omitempty" bson:"grade,omitempty"`
		CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
		UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
	}
)

// IsOverdue reports whether the due date of the assignment has passed at t.
func (a *Assignment) IsOverdue(t time.Time) bool {
	return t.After(a.DueDate)
}

func (s *Submission) IsGraded() bool { return s.Status == SubmissionGraded }

// StudentView is an assignment as listed to a student, with their own submission if any.
type StudentView struct {
	Assignment
	HasSubmitted bool        `json:"hasSubmitted"`
	MySubmission *Submission `json:"mySubmission"`
}

// SubmissionView is a submission along with the student who made it.
type SubmissionView struct {
	Submission
	Student *account.Summary `json:"student,omitempty"`
}

type SubmissionsReport struct {
	Assignment       Assignment       `json:"assignment"`
	Submissions      []SubmissionView `json:"submissions"`
	TotalSubmissions int              `json:"totalSubmissions"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	CourseID            string    `json:"courseId" form:"courseId" validate:"required,objectid"`
	Title               string    `json:"title" form:"title" validate:"required,max=200"`
	Description         string    `json:"description" form:"description" validate:"required"`
	Instructions        string    `json:"instructions" form:"instructions"`
	MaxScore            *float64  `json:"maxScore" form:"maxScore" validate:"omitempty,min=1"`
	DueDate             time.Time `json:"dueDate" form:"dueDate" validate:"required"`
	AllowLateSubmission *bool     `json:"allowLateSubmission" form:"allowLateSubmission"`
	Status              string    `json:"status" form:"status" validate:"omitempty,assignment_status"`
}

func (na *NewAssignment) clean() {
	na.CourseID = core.CleanString(na.CourseID)
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Instructions = core.CleanString(na.Instructions)
	na.Status = core.CleanString(na.Status, true /* lower */)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
// Nil fields keep their current value.
type UpdateAssignment struct {
	Title               *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description         *string    `json:"description" validate:"omitempty,min=1"`
	Instructions        *string    `json:"instructions"`
	MaxScore            *float64   `json:"maxScore" validate:"omitempty,min=1"`
	DueDate             *time.Time `json:"dueDate"`
	AllowLateSubmission *bool      `json:"allowLateSubmission"`
	Status              *string    `json:"status" validate:"omitempty,assignment_status"`
}

func (ua UpdateAssignment) apply(a *Assignment) {
	if ua.Title != nil && core.CleanString(*ua.Title) != "" {
		a.Title = core.CleanString(*ua.Title)
	}
	if ua.Description != nil && core.CleanString(*ua.Description) != "" {
		a.Description = core.CleanString(*ua.Description)
	}
	if ua.Instructions != nil {
		a.Instructions = core.CleanString(*ua.Instructions)
	}
	if ua.MaxScore != nil {
		a.MaxScore = *ua.MaxScore
	}
	if ua.DueDate != nil && !ua.DueDate.IsZero() {
		a.DueDate = ua.DueDate.UTC()
	}
	if ua.AllowLateSubmission != nil {
		a.AllowLateSubmission = *ua.AllowLateSubmission
	}
	if ua.Status != nil && *ua.Status != "" {
		a.Status = core.CleanString(*ua.Status, true /* lower */)
	}
}

type NewSubmission struct {
	AssignmentID string `json:"assignmentId" form:"assignmentId" validate:"required,objectid"`
	Content      string `json:"content" form:"content" validate:"max=20000"`
}

type UpdateSubmission struct {
	Content *string `json:"content" form:"content" validate:"omitempty,max=20000"`
}

type GradeInput struct {
	Score    *float64 `json:"score" validate:"required"`
	Feedback string   `json:"feedback" validate:"max=5000"`
}

type AssignmentFilter struct {
	CourseID     string
	ExcludeDraft bool
}

type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	CourseID     string
}
