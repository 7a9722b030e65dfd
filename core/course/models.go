package course

import (
	"sort"
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

// Levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Material types
const (
	MaterialPDF      = "pdf"
	MaterialVideo    = "video"
	MaterialDocument = "document"
	MaterialImage    = "image"
	MaterialOther    = "other"
)

var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

type (
	Lesson struct {
		ID          string `json:"id" bson:"id"`
		Title       string `json:"title" bson:"title"`
		Description string `json:"description" bson:"description"`
		Duration    string `json:"duration" bson:"duration"`
		Order       int    `json:"order" bson:"order"`
	}

	Material struct {
		ID         string    `json:"id" bson:"id"`
		Title      string    `json:"title" bson:"title"`
		Type       string    `json:"type" bson:"type"`
		URL        string    `json:"url" bson:"url"`
		Filename   string    `json:"filename" bson:"filename"`
		MimeType   string    `json:"mimeType" bson:"mimeType"`
		Size       int64     `json:"size" bson:"size"`
		StorageKey string    `json:"-" bson:"storageKey"`
		UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
	}

	Course struct {
		ID           string     `json:"id" bson:"_id"`
		Title        string     `json:"title" bson:"title"`
		Description  string     `json:"description" bson:"description"`
		TeacherID    string     `json:"teacherId" bson:"teacherId"`
		Duration     string     `json:"duration" bson:"duration"`
		Level        string     `json:"level" bson:"level"`
		Category     string     `json:"category" bson:"category"`
		Image        string     `json:"image" bson:"image"`
		TotalLessons int        `json:"totalLessons" bson:"totalLessons"`
		Lessons      []Lesson   `json:"lessons" bson:"lessons"`
		Materials    []Material `json:"materials" bson:"materials"`
		Objectives   []string   `json:"objectives" bson:"objectives"`
		Requirements []string   `json:"requirements" bson:"requirements"`
		CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"` // UTC
		UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"` // UTC
	}
)

func (c *Course) lessonIndex(id string) int {
	for i, l := range c.Lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// HasLesson reports whether the course has a lesson with id.
func (c *Course) HasLesson(id string) bool {
	return c.lessonIndex(id) >= 0
}

// Material returns the material with id.
func (c *Course) Material(id string) (Material, bool) {
	for _, m := range c.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

// Summary is the view of a course embedded in other resources.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TeacherID string `json:"teacherId"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Image     string `json:"image"`
}

func (c *Course) Summary() *Summary {
	return &Summary{ID: c.ID, Title: c.Title, TeacherID: c.TeacherID, Level: c.Level, Category: c.Category, Image: c.Image}
}

// NewCourse contains information needed to create a new Course.
// TeacherID is only read when an admin creates the course.
type NewCourse struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required"`
	TeacherID    string   `json:"teacherId" validate:"omitempty,objectid"`
	Duration     string   `json:"duration" validate:"required"`
	Level        string   `json:"level" validate:"required,level"`
	Category     string   `json:"category" validate:"required"`
	Image        string   `json:"image" validate:"omitempty,url"`
	Objectives   []string `json:"objectives" validate:"omitempty,dive,required"`
	Requirements []string `json:"requirements" validate:"omitempty,dive,required"`
}

func (nc *NewCourse) clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	nc.Duration = core.CleanString(nc.Duration)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	nc.Category = core.CleanString(nc.Category)
	nc.Image = core.CleanString(nc.Image)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Nil fields keep their current value.
type UpdateCourse struct {
	Title        *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string   `json:"description" validate:"omitempty,min=1"`
	TeacherID    *string   `json:"teacherId" validate:"omitempty,objectid"`
	Duration     *string   `json:"duration" validate:"omitempty,min=1"`
	Level        *string   `json:"level" validate:"omitempty,level"`
	Category     *string   `json:"category" validate:"omitempty,min=1"`
	Image        *string   `json:"image"`
	Objectives   *[]string `json:"objectives"`
	Requirements *[]string `json:"requirements"`
}

// apply merges the set fields of uc into c.
func (uc UpdateCourse) apply(c *Course) {
	setStr := func(dst *string, src *string, lower bool) {
		if src != nil {
			*dst = core.CleanString(*src, lower)
		}
	}
	setStr(&c.Title, uc.Title, false)
	setStr(&c.Description, uc.Description, false)
	setStr(&c.TeacherID, uc.TeacherID, false)
	setStr(&c.Duration, uc.Duration, false)
	setStr(&c.Level, uc.Level, true)
	setStr(&c.Category, uc.Category, false)
	setStr(&c.Image, uc.Image, false)
	if uc.Objectives != nil {
		c.Objectives = *uc.Objectives
	}
	if uc.Requirements != nil {
		c.Requirements = *uc.Requirements
	}
}

type NewLesson struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	Order       int    `json:"order" validate:"min=0"`
}

type UpdateLesson struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Duration    *string `json:"duration"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

func (ul *UpdateLesson) clean() {
	for _, f := range []*string{ul.Title, ul.Description, ul.Duration} {
		if f != nil {
			*f = core.CleanString(*f)
		}
	}
}

// Apply merges the set fields of ul into l.
func (ul UpdateLesson) Apply(l *Lesson) {
	if ul.Title != nil {
		l.Title = *ul.Title
	}
	if ul.Description != nil {
		l.Description = *ul.Description
	}
	if ul.Duration != nil {
		l.Duration = *ul.Duration
	}
	if ul.Order != nil {
		l.Order = *ul.Order
	}
}

// SortLessons orders lessons by Order, keeping insertion order among equals.
func SortLessons(lessons []Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
}

type QueryFilter struct {
	TeacherID string `query:"teacherId"`
	Category  string `query:"category"`
	Level     string `query:"level"`
}
