package enrollment

import (
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Enrollment struct {
	ID               string     `json:"id" bson:"_id"`
	StudentID        string     `json:"studentId" bson:"studentId"`
	CourseID         string     `json:"courseId" bson:"courseId"`
	Status           string     `json:"status" bson:"status"`
	Progress         int        `json:"progress" bson:"progress"`
	CompletedLessons []string   `json:"completedLessons" bson:"completedLessons"`
	RequestedAt      time.Time  `json:"requestedDate" bson:"requestedAt"` // UTC
	ApprovedAt       *time.Time `json:"approvedDate,omitempty" bson:"approvedAt,omitempty"`
	RejectedAt       *time.Time `json:"rejectedDate,omitempty" bson:"rejectedAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updatedAt"`
}

func (e *Enrollment) IsApproved() bool { return e.Status == StatusApproved }
func (e *Enrollment) IsPending() bool  { return e.Status == StatusPending }

// View is an enrollment along with the course and student it binds.
type View struct {
	Enrollment
	Course  *course.Summary  `json:"course,omitempty"`
	Student *account.Summary `json:"student,omitempty"`
}

type RequestInput struct {
	CourseID string `json:"courseId" validate:"required,objectid"`
}

type ProgressInput struct {
	Progress *int `json:"progress" validate:"required"`
}

type LessonInput struct {
	LessonID string `json:"lessonId" validate:"required"`
}

type QueryFilter struct {
	StudentID string
	CourseIDs []string // matches any; nil means every course
	Status    string
	Limit     int // 0 means no limit
}
