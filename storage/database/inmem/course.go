package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
)

type courseRepository struct {
	db *table[course.Course]
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.courses}
}

func cloneCourse(c *course.Course) course.Course {
	cc := *c
	cc.Lessons = append([]course.Lesson{}, c.Lessons...)
	cc.Materials = append([]course.Material{}, c.Materials...)
	cc.Objectives = append([]string{}, c.Objectives...)
	cc.Requirements = append([]string{}, c.Requirements...)
	return cc
}

func (repo *courseRepository) Create(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c.ID == "" {
		c.ID = core.NewID()
	}
	if _, ok := repo.db.rows[c.ID]; ok {
		return course.Course{}, core.ErrAlreadyExists
	}
	stored := cloneCourse(&c)
	repo.db.rows[c.ID] = &stored
	return cloneCourse(&stored), nil
}

func (repo *courseRepository) GetByID(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.rows[id]; ok {
		return cloneCourse(c), nil
	}
	return course.Course{}, core.ErrNotFound
}

func (repo *courseRepository) Query(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.all(func(c *course.Course) bool {
		return (filter.TeacherID == "" || c.TeacherID == filter.TeacherID) &&
			(filter.Category == "" || c.Category == filter.Category) &&
			(filter.Level == "" || c.Level == filter.Level)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	courses := make([]course.Course, 0, len(rows))
	for _, c := range rows {
		courses = append(courses, cloneCourse(c))
	}
	return courses, nil
}

func (repo *courseRepository) Update(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[c.ID]
	if !ok {
		return course.Course{}, core.ErrNotFound
	}
	// lessons and materials have their own atomic operations
	c.Lessons = orig.Lessons
	c.Materials = orig.Materials
	c.TotalLessons = orig.TotalLessons
	c.CreatedAt = orig.CreatedAt
	stored := cloneCourse(&c)
	repo.db.rows[c.ID] = &stored
	return cloneCourse(&stored), nil
}

func (repo *courseRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}

// modify applies fn to the stored course id under the write lock.
func (repo *courseRepository) modify(id string, updatedAt time.Time, fn func(c *course.Course) error) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[id]
	if !ok {
		return course.Course{}, core.ErrNotFound
	}
	c := cloneCourse(orig)
	if err := fn(&c); err != nil {
		return course.Course{}, err
	}
	c.UpdatedAt = updatedAt
	repo.db.rows[id] = &c
	return cloneCourse(&c), nil
}

func (repo *courseRepository) AddLesson(_ context.Context, id string, l course.Lesson, updatedAt time.Time) (course.Course, error) {
	return repo.modify(id, updatedAt, func(c *course.Course) error {
		c.Lessons = append(c.Lessons, l)
		course.SortLessons(c.Lessons)
		c.TotalLessons = len(c.Lessons)
		return nil
	})
}

func (repo *courseRepository) UpdateLesson(_ context.Context, id, lessonID string, ul course.UpdateLesson, updatedAt time.Time) (course.Course, error) {
	return repo.modify(id, updatedAt, func(c *course.Course) error {
		for i := range c.Lessons {
			if c.Lessons[i].ID == lessonID {
				ul.Apply(&c.Lessons[i])
				course.SortLessons(c.Lessons)
				return nil
			}
		}
		return core.ErrNotFound
	})
}

func (repo *courseRepository) RemoveLesson(_ context.Context, id, lessonID string, updatedAt time.Time) (course.Course, error) {
	return repo.modify(id, updatedAt, func(c *course.Course) error {
		for i, l := range c.Lessons {
			if l.ID == lessonID {
				c.Lessons = append(c.Lessons[:i], c.Lessons[i+1:]...)
				c.TotalLessons = len(c.Lessons)
				return nil
			}
		}
		return core.ErrNotFound
	})
}

func (repo *courseRepository) AddMaterial(_ context.Context, id string, m course.Material, updatedAt time.Time) (course.Course, error) {
	return repo.modify(id, updatedAt, func(c *course.Course) error {
		c.Materials = append(c.Materials, m)
		return nil
	})
}

func (repo *courseRepository) RemoveMaterial(_ context.Context, id, materialID string, updatedAt time.Time) (course.Course, error) {
	return repo.modify(id, updatedAt, func(c *course.Course) error {
		for i, m := range c.Materials {
			if m.ID == materialID {
				c.Materials = append(c.Materials[:i], c.Materials[i+1:]...)
				return nil
			}
		}
		return core.ErrNotFound
	})
}
