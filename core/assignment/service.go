package assignment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

var (
	// errors
	ErrNotFound           = core.NewError(core.KindNotFound, "assignment not found")
	ErrSubmissionNotFound = core.NewError(core.KindNotFound, "submission not found")
	ErrNotEnrolled        = core.NewError(core.KindForbidden, "you must be enrolled in this course")
	ErrAlreadySubmitted   = core.NewError(core.KindAlreadyExists, "you have already submitted this assignment")
	ErrDeadlinePassed     = core.NewError(core.KindDeadlinePassed, "deadline has passed and late submissions are not allowed")
	ErrGraded             = core.NewError(core.KindInvalidTransition, "cannot modify a graded submission")
	ErrScoreRequired      = core.NewError(core.KindInvalidArgument, "score is required")
	ErrTooManyAttachments = core.NewError(core.KindInvalidArgument, fmt.Sprintf("at most %d attachments are allowed", MaxAttachments))
)

type (
	Repository interface {
		Create(ctx context.Context, a Assignment) (Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		// Query returns the assignments matching filter, by due date.
		Query(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
		Update(ctx context.Context, a Assignment) (Assignment, error)
		Delete(ctx context.Context, id string) error
		DeleteByCourse(ctx context.Context, courseID string) error
	}

	SubmissionRepository interface {
		// Create fails with core.ErrAlreadyExists if the (assignment, student) pair is taken.
		Create(ctx context.Context, s Submission) (Submission, error)
		GetByID(ctx context.Context, id string) (Submission, error)
		Find(ctx context.Context, assignmentID, studentID string) (Submission, error)
		// Query returns the submissions matching filter, most recent first.
		Query(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
		// UpdateUngraded and DeleteUngraded fail with core.ErrNotFound if the submission is missing or graded.
		UpdateUngraded(ctx context.Context, s Submission) (Submission, error)
		DeleteUngraded(ctx context.Context, id string) error
		// SetGrade records the grade and marks the submission graded.
		SetGrade(ctx context.Context, id string, g Grade) (Submission, error)
		DeleteByAssignment(ctx context.Context, assignmentID string) error
		DeleteByCourse(ctx context.Context, courseID string) error
	}

	CourseFinder interface {
		Get(ctx context.Context, id string) (course.Course, error)
	}

	EnrollmentChecker interface {
		IsApproved(ctx context.Context, studentID, courseID string) (bool, error)
	}

	AccountFinder interface {
		GetByID(ctx context.Context, id string) (account.Account, error)
	}

	Service struct {
		assignments Repository
		submissions SubmissionRepository
		courses     CourseFinder
		enrollments EnrollmentChecker
		accounts    AccountFinder
		blobs       core.BlobStore
		guard       *guard.Guard
		validate    *validator.Validate
		mailer      core.EmailService
		logger      core.Logger
	}
)

// Deps groups the collaborators of a Service.
type Deps struct {
	Assignments Repository
	Submissions SubmissionRepository
	Courses     CourseFinder
	Enrollments EnrollmentChecker
	Accounts    AccountFinder
	Blobs       core.BlobStore
	Guard       *guard.Guard
	Validate    *validator.Validate
	Mailer      core.EmailService
	Logger      core.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		assignments: deps.Assignments,
		submissions: deps.Submissions,
		courses:     deps.Courses,
		enrollments: deps.Enrollments,
		accounts:    deps.Accounts,
		blobs:       deps.Blobs,
		guard:       deps.Guard,
		validate:    deps.Validate,
		mailer:      deps.Mailer,
		logger:      deps.Logger,
	}
}

// =========================================================================
// Assignments

func (svc *Service) get(ctx context.Context, id string) (Assignment, error) {
	if !core.IsID(id) {
		return Assignment{}, ErrNotFound
	}
	a, err := svc.assignments.GetByID(ctx, id)
	if core.IsKind(err, core.KindNotFound) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

// Create creates an assignment on a course owned by the principal.
func (svc *Service) Create(ctx context.Context, p core.Principal, na NewAssignment, files []core.Upload) (Assignment, error) {
	na.clean()
	if err := svc.validate.Struct(na); err != nil {
		return Assignment{}, err
	}
	c, err := svc.courses.Get(ctx, na.CourseID)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.guard.Authorize(p, guard.AssignmentCreate, c.TeacherID); err != nil {
		return Assignment{}, err
	}
	if err = checkAttachments(files); err != nil {
		return Assignment{}, err
	}

	now := core.Now()
	a := Assignment{
		CourseID:     c.ID,
		TeacherID:    c.TeacherID,
		Title:        na.Title,
		Description:  na.Description,
		Instructions: na.Instructions,
		MaxScore:     DefaultMaxScore,
		DueDate:      na.DueDate.UTC(),
		Status:       StatusPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if na.MaxScore != nil {
		a.MaxScore = *na.MaxScore
	}
	if na.AllowLateSubmission != nil {
		a.AllowLateSubmission = *na.AllowLateSubmission
	}
	if na.Status != "" {
		a.Status = na.Status
	}

	if a.Attachments, err = svc.storeAttachments(ctx, "assignments/"+c.ID, files); err != nil {
		return Assignment{}, err
	}
	created, err := svc.assignments.Create(ctx, a)
	if err != nil {
		svc.discardAttachments(ctx, a.Attachments)
		return Assignment{}, errors.Wrap(err, "saving assignment")
	}
	return created, nil
}

// Get returns an assignment. Students must be enrolled in its course and get their own submission along;
// drafts are only visible to their teacher.
func (svc *Service) Get(ctx context.Context, p core.Principal, id string) (StudentView, error) {
	a, err := svc.get(ctx, id)
	if err != nil {
		return StudentView{}, err
	}
	if err = svc.guard.Authorize(p, guard.AssignmentRead, a.TeacherID); err != nil {
		return StudentView{}, err
	}
	if guard.OwnsResource(p, a.TeacherID) {
		return StudentView{Assignment: a}, nil
	}

	approved, err := svc.enrollments.IsApproved(ctx, p.ID, a.CourseID)
	if err != nil {
		return StudentView{}, err
	}
	if !approved {
		return StudentView{}, ErrNotEnrolled
	}
	if a.Status == StatusDraft {
		return StudentView{}, ErrNotFound
	}

	v := StudentView{Assignment: a}
	s, err := svc.submissions.Find(ctx, a.ID, p.ID)
	switch {
	case err == nil:
		v.HasSubmitted = true
		v.MySubmission = &s
	case !core.IsKind(err, core.KindNotFound):
		return StudentView{}, err
	}
	return v, nil
}

// Update merges the set fields of ua into the assignment. Any status may be set at any time.
func (svc *Service) Update(ctx context.Context, p core.Principal, id string, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.get(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.guard.Authorize(p, guard.AssignmentUpdate, a.TeacherID); err != nil {
		return Assignment{}, err
	}
	if err = svc.validate.Struct(ua); err != nil {
		return Assignment{}, err
	}
	ua.apply(&a)
	a.UpdatedAt = core.Now()
	return svc.assignments.Update(ctx, a)
}

// Delete removes the assignment, then its submissions, then their blobs.
// The steps are sequential and not atomic: a crash midway may leave orphaned submissions.
func (svc *Service) Delete(ctx context.Context, p core.Principal, id string) error {
	a, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard.Authorize(p, guard.AssignmentDelete, a.TeacherID); err != nil {
		return err
	}
	subs, err := svc.submissions.Query(ctx, SubmissionFilter{AssignmentID: a.ID})
	if err != nil {
		return err
	}
	if err = svc.assignments.Delete(ctx, a.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if err = svc.submissions.DeleteByAssignment(ctx, a.ID); err != nil {
		return errors.Wrapf(err, "deleting submissions of assignment %s", a.ID)
	}
	svc.discardAttachments(ctx, a.Attachments)
	for _, s := range subs {
		svc.discardAttachments(ctx, s.Attachments)
	}
	return nil
}

// CourseAssignments lists the assignments of a course.
// The course teacher sees every assignment; enrolled students see the non-draft ones along with their submission.
func (svc *Service) CourseAssignments(ctx context.Context, p core.Principal, courseID string) ([]StudentView, error) {
	c, err := svc.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err = svc.guard.Authorize(p, guard.AssignmentRead, c.TeacherID); err != nil {
		return nil, err
	}

	if guard.OwnsResource(p, c.TeacherID) {
		assignments, err := svc.assignments.Query(ctx, AssignmentFilter{CourseID: c.ID})
		if err != nil {
			return nil, err
		}
		views := make([]StudentView, 0, len(assignments))
		for _, a := range assignments {
			views = append(views, StudentView{Assignment: a})
		}
		return views, nil
	}

	approved, err := svc.enrollments.IsApproved(ctx, p.ID, c.ID)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, ErrNotEnrolled
	}
	assignments, err := svc.assignments.Query(ctx, AssignmentFilter{CourseID: c.ID, ExcludeDraft: true})
	if err != nil {
		return nil, err
	}
	mine, err := svc.submissions.Query(ctx, SubmissionFilter{CourseID: c.ID, StudentID: p.ID})
	if err != nil {
		return nil, err
	}
	byAssignment := make(map[string]Submission, len(mine))
	for _, s := range mine {
		byAssignment[s.AssignmentID] = s
	}

	views := make([]StudentView, 0, len(assignments))
	for _, a := range assignments {
		v := StudentView{Assignment: a}
		if s, ok := byAssignment[a.ID]; ok {
			s := s
			v.HasSubmitted = true
			v.MySubmission = &s
		}
		views = append(views, v)
	}
	return views, nil
}

// Submissions reports every submission made to an assignment.
func (svc *Service) Submissions(ctx context.Context, p core.Principal, id string) (SubmissionsReport, error) {
	a, err := svc.get(ctx, id)
	if err != nil {
		return SubmissionsReport{}, err
	}
	if err = svc.guard.Authorize(p, guard.AssignmentListSubmissions, a.TeacherID); err != nil {
		return SubmissionsReport{}, err
	}
	subs, err := svc.submissions.Query(ctx, SubmissionFilter{AssignmentID: a.ID})
	if err != nil {
		return SubmissionsReport{}, err
	}

	views := make([]SubmissionView, 0, len(subs))
	for _, s := range subs {
		v := SubmissionView{Submission: s}
		if student, err := svc.accounts.GetByID(ctx, s.StudentID); err == nil {
			v.Student = student.Summary()
		}
		views = append(views, v)
	}
	return SubmissionsReport{Assignment: a, Submissions: views, TotalSubmissions: len(views)}, nil
}

// DeleteByCourse removes the assignments and submissions of a deleted course, then their blobs.
func (svc *Service) DeleteByCourse(ctx context.Context, courseID string) error {
	assignments, err := svc.assignments.Query(ctx, AssignmentFilter{CourseID: courseID})
	if err != nil {
		return err
	}
	subs, err := svc.submissions.Query(ctx, SubmissionFilter{CourseID: courseID})
	if err != nil {
		return err
	}
	if err = svc.assignments.DeleteByCourse(ctx, courseID); err != nil {
		return errors.Wrap(err, "deleting assignments")
	}
	if err = svc.submissions.DeleteByCourse(ctx, courseID); err != nil {
		return errors.Wrap(err, "deleting submissions")
	}
	for _, a := range assignments {
		svc.discardAttachments(ctx, a.Attachments)
	}
	for _, s := range subs {
		svc.discardAttachments(ctx, s.Attachments)
	}
	return nil
}

// =========================================================================
// Submissions

func (svc *Service) getSubmission(ctx context.Context, id string) (Submission, error) {
	if !core.IsID(id) {
		return Submission{}, ErrSubmissionNotFound
	}
	s, err := svc.submissions.GetByID(ctx, id)
	if core.IsKind(err, core.KindNotFound) {
		return Submission{}, ErrSubmissionNotFound
	}
	return s, err
}

// Submit hands in the principal's work for an assignment.
// A submission past the due date is flagged late, or refused if the assignment does not accept late work.
func (svc *Service) Submit(ctx context.Context, p core.Principal, ns NewSubmission, files []core.Upload) (Submission, error) {
	if err := svc.guard.Authorize(p, guard.SubmissionCreate); err != nil {
		return Submission{}, err
	}
	ns.AssignmentID = core.CleanString(ns.AssignmentID)
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, err
	}
	a, err := svc.get(ctx, ns.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if a.Status == StatusDraft {
		return Submission{}, ErrNotFound
	}

	approved, err := svc.enrollments.IsApproved(ctx, p.ID, a.CourseID)
	if err != nil {
		return Submission{}, err
	}
	if !approved {
		return Submission{}, ErrNotEnrolled
	}
	if _, err = svc.submissions.Find(ctx, a.ID, p.ID); err == nil {
		return Submission{}, ErrAlreadySubmitted
	} else if !core.IsKind(err, core.KindNotFound) {
		return Submission{}, errors.Wrap(err, "looking up submission")
	}

	now := core.Now()
	isLate := a.IsOverdue(now)
	if isLate && !a.AllowLateSubmission {
		return Submission{}, ErrDeadlinePassed
	}
	if err = checkAttachments(files); err != nil {
		return Submission{}, err
	}

	s := Submission{
		AssignmentID: a.ID,
		StudentID:    p.ID,
		CourseID:     a.CourseID,
		Content:      core.CleanString(ns.Content),
		SubmittedAt:  now,
		IsLate:       isLate,
		Status:       SubmissionSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.Attachments, err = svc.storeAttachments(ctx, "submissions/"+a.ID, files); err != nil {
		return Submission{}, err
	}
	created, err := svc.submissions.Create(ctx, s)
	if err != nil {
		svc.discardAttachments(ctx, s.Attachments)
		if core.IsKind(err, core.KindAlreadyExists) { // lost a race on the unique (assignment, student) index
			return Submission{}, ErrAlreadySubmitted
		}
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	return created, nil
}

func (svc *Service) MySubmissions(ctx context.Context, p core.Principal) ([]Submission, error) {
	if err := svc.guard.Authorize(p, guard.SubmissionListOwn); err != nil {
		return nil, err
	}
	return svc.submissions.Query(ctx, SubmissionFilter{StudentID: p.ID})
}

// GetSubmission returns a submission to its student or to the teacher of its assignment.
func (svc *Service) GetSubmission(ctx context.Context, p core.Principal, id string) (Submission, error) {
	s, err := svc.getSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	owners := []string{s.StudentID}
	if a, err := svc.get(ctx, s.AssignmentID); err == nil {
		owners = append(owners, a.TeacherID)
	} else if !core.IsKind(err, core.KindNotFound) {
		return Submission{}, err
	}
	if err = svc.guard.Authorize(p, guard.SubmissionRead, owners...); err != nil {
		return Submission{}, err
	}
	return s, nil
}

// UpdateSubmission modifies an ungraded submission of the principal.
// New attachments are added to the previous ones. Lateness is evaluated again but never refused.
func (svc *Service) UpdateSubmission(ctx context.Context, p core.Principal, id string, us UpdateSubmission, files []core.Upload) (Submission, error) {
	s, err := svc.getSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if err = svc.guard.Authorize(p, guard.SubmissionUpdate, s.StudentID); err != nil {
		return Submission{}, err
	}
	if s.IsGraded() {
		return Submission{}, ErrGraded
	}
	if err = svc.validate.Struct(us); err != nil {
		return Submission{}, err
	}
	a, err := svc.get(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, err
	}

	if len(s.Attachments)+len(files) > MaxAttachments {
		return Submission{}, ErrTooManyAttachments
	}
	if err = checkAttachments(files); err != nil {
		return Submission{}, err
	}

	added, err := svc.storeAttachments(ctx, "submissions/"+a.ID, files)
	if err != nil {
		return Submission{}, err
	}
	s.Attachments = append(s.Attachments, added...)
	if us.Content != nil {
		s.Content = core.CleanString(*us.Content)
	}
	now := core.Now()
	s.IsLate = a.IsOverdue(now)
	s.SubmittedAt = now
	s.UpdatedAt = now

	updated, err := svc.submissions.UpdateUngraded(ctx, s)
	if err != nil {
		svc.discardAttachments(ctx, added)
		if core.IsKind(err, core.KindNotFound) { // graded concurrently
			return Submission{}, ErrGraded
		}
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	return updated, nil
}

// DeleteSubmission removes an ungraded submission of the principal.
func (svc *Service) DeleteSubmission(ctx context.Context, p core.Principal, id string) error {
	s, err := svc.getSubmission(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.guard.Authorize(p, guard.SubmissionDelete, s.StudentID); err != nil {
		return err
	}
	if s.IsGraded() {
		return ErrGraded
	}
	if err = svc.submissions.DeleteUngraded(ctx, s.ID); err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return ErrGraded
		}
		return errors.Wrap(err, "deleting submission")
	}
	svc.discardAttachments(ctx, s.Attachments)
	return nil
}

// Grade records the score of a submission. Teachers may grade again; the latest grade wins.
func (svc *Service) Grade(ctx context.Context, p core.Principal, id string, gi GradeInput) (Submission, error) {
	s, err := svc.getSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	a, err := svc.get(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if err = svc.guard.Authorize(p, guard.SubmissionGrade, a.TeacherID); err != nil {
		return Submission{}, err
	}
	if gi.Score == nil {
		return Submission{}, ErrScoreRequired
	}
	if *gi.Score < 0 || *gi.Score > a.MaxScore {
		return Submission{}, core.NewError(core.KindInvalidArgument, fmt.Sprintf("score must be between 0 and %g", a.MaxScore))
	}
	if err = svc.validate.Struct(gi); err != nil {
		return Submission{}, err
	}

	s, err = svc.submissions.SetGrade(ctx, s.ID, Grade{
		Score:    *gi.Score,
		Feedback: core.CleanString(gi.Feedback),
		GradedBy: p.ID,
		GradedAt: core.Now(),
	})
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, errors.Wrap(err, "saving grade")
	}
	svc.notifyGraded(ctx, s, a)
	return s, nil
}

func (svc *Service) notifyGraded(ctx context.Context, s Submission, a Assignment) {
	student, err := svc.accounts.GetByID(ctx, s.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("submission %s: student %s not found for notification", s.ID, s.StudentID), err)
		return
	}
	to := mail.Address{Name: student.Name, Address: student.Email}
	svc.mailer.SendMessages(core.NewSubmissionGradedEmail(to, a.Title, s.Grade.Score, a.MaxScore, s.Grade.Feedback))
}

// =========================================================================
// Attachments

func checkAttachments(files []core.Upload) error {
	if len(files) > MaxAttachments {
		return ErrTooManyAttachments
	}
	for i := range files {
		if err := AttachmentPolicy.Check(&files[i]); err != nil {
			return err
		}
	}
	return nil
}

// storeAttachments stores checked files under prefix. On failure the files stored so far are deleted.
func (svc *Service) storeAttachments(ctx context.Context, prefix string, files []core.Upload) ([]Attachment, error) {
	attachments := make([]Attachment, 0, len(files))
	for _, f := range files {
		blob, err := svc.blobs.Put(ctx, core.ObjectKey(prefix, f.Filename), f.ContentType, f.Content)
		if err != nil {
			svc.discardAttachments(ctx, attachments)
			return nil, errors.Wrapf(err, "storing attachment %q", f.Filename)
		}
		size := blob.Size
		if size == 0 {
			size = f.Size
		}
		attachments = append(attachments, Attachment{
			Filename:   f.Filename,
			URL:        blob.URL,
			MimeType:   f.ContentType,
			Size:       size,
			StorageKey: blob.Key,
			UploadedAt: core.Now(),
		})
	}
	return attachments, nil
}

// discardAttachments deletes blobs best-effort: failures are logged, never returned.
func (svc *Service) discardAttachments(ctx context.Context, attachments []Attachment) {
	for _, at := range attachments {
		if at.StorageKey == "" {
			continue
		}
		if err := svc.blobs.Delete(context.WithoutCancel(ctx), at.StorageKey); err != nil {
			svc.logger.Error(fmt.Sprintf("deleting blob %q: %v", at.StorageKey, err), err)
		}
	}
}
