package course

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

var (
	// errors
	ErrNotFound         = core.NewError(core.KindNotFound, "course not found")
	ErrLessonNotFound   = core.NewError(core.KindNotFound, "lesson not found")
	ErrMaterialNotFound = core.NewError(core.KindNotFound, "material not found")
	ErrInvalidTeacher   = core.NewError(core.KindInvalidTeacher, "invalid teacher: a valid teacherId is required")
)

type (
	Repository interface {
		Create(ctx context.Context, c Course) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		// Query returns the courses matching every set QueryFilter field, newest first.
		Query(ctx context.Context, filter QueryFilter) ([]Course, error)
		// Update saves the course fields other than its lessons and materials.
		Update(ctx context.Context, c Course) (Course, error)
		Delete(ctx context.Context, id string) error
		// AddLesson, UpdateLesson and RemoveLesson atomically modify one lesson of the course,
		// keeping the lessons sorted by order and the lesson count in step.
		// UpdateLesson and RemoveLesson fail with core.ErrNotFound if the lesson does not exist.
		AddLesson(ctx context.Context, id string, l Lesson, updatedAt time.Time) (Course, error)
		UpdateLesson(ctx context.Context, id, lessonID string, ul UpdateLesson, updatedAt time.Time) (Course, error)
		RemoveLesson(ctx context.Context, id, lessonID string, updatedAt time.Time) (Course, error)
		// AddMaterial and RemoveMaterial atomically modify the material list of the course.
		AddMaterial(ctx context.Context, id string, m Material, updatedAt time.Time) (Course, error)
		RemoveMaterial(ctx context.Context, id, materialID string, updatedAt time.Time) (Course, error)
	}

	AccountFinder interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	// DeleteHook removes the records depending on a deleted course.
	DeleteHook func(ctx context.Context, courseID string) error

	Service struct {
		repo     Repository
		accounts AccountFinder
		blobs    core.BlobStore
		guard    *guard.Guard
		validate *validator.Validate
		logger   core.Logger
		onDelete []DeleteHook
	}
)

func NewService(
	repo Repository,
	accounts AccountFinder,
	blobs core.BlobStore,
	g *guard.Guard,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		blobs:    blobs,
		guard:    g,
		validate: validate,
		logger:   logger,
	}
}

// OnDelete registers hooks run, in order, after a course is deleted.
func (svc *Service) OnDelete(hooks ...DeleteHook) {
	svc.onDelete = append(svc.onDelete, hooks...)
}

func (svc *Service) checkTeacher(ctx context.Context, id string) error {
	if id == "" || !core.IsID(id) {
		return ErrInvalidTeacher
	}
	acc, err := svc.accounts.GetByID(ctx, id)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrInvalidTeacher
		}
		return err
	}
	if !acc.IsTeacher() {
		return ErrInvalidTeacher
	}
	return nil
}

// Create creates a course. Teachers always own the courses they create;
// admins must name an existing teacher as owner.
func (svc *Service) Create(ctx context.Context, p core.Principal, nc NewCourse) (Course, error) {
	if err := svc.guard.Authorize(p, guard.CourseCreate); err != nil {
		return Course{}, err
	}
	nc.clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, err
	}

	teacherID := p.ID
	if p.IsAdmin() {
		if err := svc.checkTeacher(ctx, nc.TeacherID); err != nil {
			return Course{}, err
		}
		teacherID = nc.TeacherID
	}

	now := core.Now()
	c := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		TeacherID:    teacherID,
		Duration:     nc.Duration,
		Level:        nc.Level,
		Category:     nc.Category,
		Image:        nc.Image,
		Lessons:      []Lesson{},
		Materials:    []Material{},
		Objectives:   nonNil(nc.Objectives),
		Requirements: nonNil(nc.Requirements),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.Create(ctx, c)
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	if !core.IsID(id) {
		return Course{}, ErrNotFound
	}
	c, err := svc.repo.GetByID(ctx, id)
	if core.IsKind(err, core.KindNotFound) {
		return Course{}, ErrNotFound
	}
	return c, err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	filter.TeacherID = core.CleanString(filter.TeacherID)
	filter.Category = core.CleanString(filter.Category)
	filter.Level = core.CleanString(filter.Level, true /* lower */)
	return svc.repo.Query(ctx, filter)
}

// Mine lists the courses taught by the principal.
func (svc *Service) Mine(ctx context.Context, p core.Principal) ([]Course, error) {
	if err := svc.guard.Authorize(p, guard.CourseListOwn); err != nil {
		return nil, err
	}
	return svc.repo.Query(ctx, QueryFilter{TeacherID: p.ID})
}

// Update merges the set fields of uc into the course. Only admins may reassign the teacher.
func (svc *Service) Update(ctx context.Context, p core.Principal, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.guard.Authorize(p, guard.CourseUpdate, c.TeacherID); err != nil {
		return Course{}, err
	}
	if err = svc.validate.Struct(uc); err != nil {
		return Course{}, err
	}

	if uc.TeacherID != nil && core.CleanString(*uc.TeacherID) != c.TeacherID {
		if err = svc.guard.Authorize(p, guard.CourseReassign); err != nil {
			return Course{}, core.NewError(core.KindForbidden, "only admins can reassign the teacher of a course")
		}
		if err = svc.checkTeacher(ctx, core.CleanString(*uc.TeacherID)); err != nil {
			return Course{}, err
		}
	}

	uc.apply(&c)
	if c.Title == "" || c.Description == "" || c.Duration == "" || c.Level == "" || c.Category == "" {
		return Course{}, core.NewError(core.KindInvalidArgument, "title, description, duration, level and category can not be empty")
	}
	c.Objectives = nonNil(c.Objectives)
	c.Requirements = nonNil(c.Requirements)
	c.UpdatedAt = core.Now()
	return svc.repo.Update(ctx, c)
}

// Delete removes the course, then its dependent records, then its material blobs.
// The steps are sequential and not atomic: a failure midway leaves orphans behind.
func (svc *Service) Delete(ctx context.Context, p core.Principal, id string) error {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard.Authorize(p, guard.CourseDelete, c.TeacherID); err != nil {
		return err
	}
	if err = svc.repo.Delete(ctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	for _, hook := range svc.onDelete {
		if err = hook(ctx, c.ID); err != nil {
			return errors.Wrapf(err, "deleting records of course %s", c.ID)
		}
	}
	for _, m := range c.Materials {
		svc.discardBlob(ctx, m.StorageKey)
	}
	return nil
}

// lessonCourse returns the course whose lessons p wants to edit.
func (svc *Service) lessonCourse(ctx context.Context, p core.Principal, courseID string) (Course, error) {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if err = svc.guard.Authorize(p, guard.LessonWrite, c.TeacherID); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *Service) AddLesson(ctx context.Context, p core.Principal, courseID string, nl NewLesson) (Course, error) {
	c, err := svc.lessonCourse(ctx, p, courseID)
	if err != nil {
		return Course{}, err
	}
	if err = svc.validate.Struct(nl); err != nil {
		return Course{}, err
	}
	l := Lesson{
		ID:          core.NewID(),
		Title:       core.CleanString(nl.Title),
		Description: core.CleanString(nl.Description),
		Duration:    core.CleanString(nl.Duration),
		Order:       nl.Order,
	}
	c, err = svc.repo.AddLesson(ctx, c.ID, l, core.Now())
	if core.IsKind(err, core.KindNotFound) {
		return Course{}, ErrNotFound
	}
	return c, err
}

// UpdateLesson changes the set fields of the lesson only, so concurrent edits of other lessons are kept.
func (svc *Service) UpdateLesson(ctx context.Context, p core.Principal, courseID, lessonID string, ul UpdateLesson) (Course, error) {
	c, err := svc.lessonCourse(ctx, p, courseID)
	if err != nil {
		return Course{}, err
	}
	if !c.HasLesson(lessonID) {
		return Course{}, ErrLessonNotFound
	}
	ul.clean()
	if err = svc.validate.Struct(ul); err != nil {
		return Course{}, err
	}
	c, err = svc.repo.UpdateLesson(ctx, c.ID, lessonID, ul, core.Now())
	if core.IsKind(err, core.KindNotFound) {
		return Course{}, ErrLessonNotFound
	}
	return c, err
}

func (svc *Service) RemoveLesson(ctx context.Context, p core.Principal, courseID, lessonID string) (Course, error) {
	c, err := svc.lessonCourse(ctx, p, courseID)
	if err != nil {
		return Course{}, err
	}
	if !c.HasLesson(lessonID) {
		return Course{}, ErrLessonNotFound
	}
	c, err = svc.repo.RemoveLesson(ctx, c.ID, lessonID, core.Now())
	if core.IsKind(err, core.KindNotFound) {
		return Course{}, ErrLessonNotFound
	}
	return c, err
}

// UploadMaterial stores the file, then attaches it to the course.
// If attaching fails for any reason (missing course, ownership, persistence) the stored blob is deleted.
func (svc *Service) UploadMaterial(ctx context.Context, p core.Principal, courseID, title string, up core.Upload) (Material, error) {
	if err := MaterialPolicy.Check(&up); err != nil {
		return Material{}, err
	}
	blob, err := svc.blobs.Put(ctx, core.ObjectKey("materials/"+courseID, up.Filename), up.ContentType, up.Content)
	if err != nil {
		return Material{}, errors.Wrap(err, "storing material")
	}

	m, err := svc.attachMaterial(ctx, p, courseID, title, up, blob)
	if err != nil {
		svc.discardBlob(ctx, blob.Key)
		return Material{}, err
	}
	return m, nil
}

func (svc *Service) attachMaterial(ctx context.Context, p core.Principal, courseID, title string, up core.Upload, blob core.Blob) (Material, error) {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return Material{}, err
	}
	if err = svc.guard.Authorize(p, guard.MaterialUpload, c.TeacherID); err != nil {
		return Material{}, err
	}

	size := blob.Size
	if size == 0 {
		size = up.Size
	}
	if title = core.CleanString(title); title == "" {
		title = up.Filename
	}
	m := Material{
		ID:         core.NewID(),
		Title:      title,
		Type:       MaterialType(up.ContentType),
		URL:        blob.URL,
		Filename:   up.Filename,
		MimeType:   up.ContentType,
		Size:       size,
		StorageKey: blob.Key,
		UploadedAt: core.Now(),
	}
	if _, err = svc.repo.AddMaterial(ctx, c.ID, m, m.UploadedAt); err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return Material{}, ErrNotFound
		}
		return Material{}, errors.Wrap(err, "saving material")
	}
	return m, nil
}

func (svc *Service) Materials(ctx context.Context, courseID string) ([]Material, error) {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return c.Materials, nil
}

// DeleteMaterial detaches the material from the course, then deletes its blob.
func (svc *Service) DeleteMaterial(ctx context.Context, p core.Principal, courseID, materialID string) error {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if err = svc.guard.Authorize(p, guard.MaterialDelete, c.TeacherID); err != nil {
		return err
	}
	m, ok := c.Material(materialID)
	if !ok {
		return ErrMaterialNotFound
	}
	if _, err = svc.repo.RemoveMaterial(ctx, c.ID, m.ID, core.Now()); err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrMaterialNotFound
		}
		return errors.Wrap(err, "removing material")
	}
	svc.discardBlob(ctx, m.StorageKey)
	return nil
}

// discardBlob deletes a blob best-effort: failures are logged, never returned.
func (svc *Service) discardBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := svc.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		svc.logger.Error(fmt.Sprintf("deleting blob %q: %v", key, err), err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
