package review

import (
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"id" bson:"_id"`
	CourseID  string    `json:"courseId" bson:"courseId"`
	StudentID string    `json:"studentId" bson:"studentId"`
	Rating    int       `json:"rating" bson:"rating"`
	Text      string    `json:"review" bson:"review"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type View struct {
	Review
	Student *account.Summary `json:"student,omitempty"`
	Course  *course.Summary  `json:"course,omitempty"`
}

// Stats aggregates the ratings of a course. Distribution is keyed by rating.
type Stats struct {
	AverageRating float64     `json:"averageRating"`
	TotalReviews  int         `json:"totalReviews"`
	Distribution  map[int]int `json:"distribution"`
}

type CourseReviews struct {
	Reviews []View `json:"reviews"`
	Stats   Stats  `json:"stats"`
}

type Input struct {
	CourseID string `json:"courseId" validate:"required,objectid"`
	Rating   *int   `json:"rating" validate:"required"`
	Text     string `json:"review" validate:"required,min=10,max=500"`
}

func (in *Input) clean() {
	in.CourseID = core.CleanString(in.CourseID)
	in.Text = core.CleanString(in.Text)
}
