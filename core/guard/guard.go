// Package guard authorizes principals against a declarative capability table.
//
// Each row of the table grants a role an action on a resource, optionally requiring
// the principal to own the resource. Admins are granted everything in one row, which
// is the only place the admin bypass lives.
package guard

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

const (
	ownAny   = "any"
	ownOwner = "owner"
	ownNone  = "none"
)

var ErrForbidden = core.NewError(core.KindForbidden, "permission denied")

// Capability is an action on a kind of resource.
type Capability struct {
	Resource string
	Action   string
}

func (c Capability) String() string {
	return c.Resource + ":" + c.Action
}

var (
	AccountReadSelf = Capability{"account", "read-self"}
	AccountManage   = Capability{"account", "manage"}

	CourseCreate   = Capability{"course", "create"}
	CourseUpdate   = Capability{"course", "update"}
	CourseDelete   = Capability{"course", "delete"}
	CourseReassign = Capability{"course", "reassign"}
	CourseListOwn  = Capability{"course", "list-own"}
	LessonWrite    = Capability{"lesson", "write"}
	MaterialUpload = Capability{"material", "upload"}
	MaterialDelete = Capability{"material", "delete"}

	EnrollmentRequest      = Capability{"enrollment", "request"}
	EnrollmentListOwn      = Capability{"enrollment", "list-own"}
	EnrollmentDecide       = Capability{"enrollment", "decide"}
	EnrollmentListCourse   = Capability{"enrollment", "list-course"}
	EnrollmentListTeaching = Capability{"enrollment", "list-teaching"}
	EnrollmentProgress     = Capability{"enrollment", "progress"}

	AssignmentRead            = Capability{"assignment", "read"}
	AssignmentCreate          = Capability{"assignment", "create"}
	AssignmentUpdate          = Capability{"assignment", "update"}
	AssignmentDelete          = Capability{"assignment", "delete"}
	AssignmentListSubmissions = Capability{"assignment", "list-submissions"}

	SubmissionCreate  = Capability{"submission", "create"}
	SubmissionListOwn = Capability{"submission", "list-own"}
	SubmissionRead    = Capability{"submission", "read"}
	SubmissionUpdate  = Capability{"submission", "update"}
	SubmissionDelete  = Capability{"submission", "delete"}
	SubmissionGrade   = Capability{"submission", "grade"}

	MessageSend = Capability{"message", "send"}

	ReviewWrite   = Capability{"review", "write"}
	ReviewDelete  = Capability{"review", "delete"}
	ReviewListOwn = Capability{"review", "list-own"}

	DashboardRead = Capability{"dashboard", "read"}
)

// Guard evaluates capabilities. It is safe for concurrent use.
type Guard struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds a Guard from the embedded capability table.
func New() (*Guard, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("loading guard model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("creating guard enforcer: %w", err)
	}
	if err = loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Guard{enforcer: enforcer}, nil
}

// MustNew is like New but panics on error. The embedded table is static, so an error is a programming error.
func MustNew() *Guard {
	g, err := New()
	if err != nil {
		panic(err)
	}
	return g
}

// loadPolicy parses the policy CSV and loads it into the enforcer.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rule := make([]interface{}, 0, len(parts)-1)
		for _, p := range parts[1:] {
			rule = append(rule, p)
		}

		switch parts[0] {
		case "p":
			if len(rule) != 4 {
				return fmt.Errorf("malformed policy %q", line)
			}
			if _, err := enforcer.AddPolicy(rule...); err != nil {
				return fmt.Errorf("adding policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) != 2 {
				return fmt.Errorf("malformed grouping policy %q", line)
			}
			if _, err := enforcer.AddGroupingPolicy(rule...); err != nil {
				return fmt.Errorf("adding grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Can reports whether p holds capability c over a resource owned by owners.
// Without owners only capabilities granted regardless of ownership match.
func (g *Guard) Can(p core.Principal, c Capability, owners ...string) bool {
	own := ownNone
	for _, o := range owners {
		if o != "" && o == p.ID {
			own = ownOwner
			break
		}
	}
	allowed, err := g.enforcer.Enforce(p.Role, c.Resource, c.Action, own)
	return err == nil && allowed
}

// Authorize returns ErrForbidden unless p holds capability c over a resource owned by owners.
func (g *Guard) Authorize(p core.Principal, c Capability, owners ...string) error {
	if p.ID == "" {
		return core.NewError(core.KindUnauthenticated, "user not authenticated")
	}
	if !g.Can(p, c, owners...) {
		return ErrForbidden
	}
	return nil
}

// Role predicates, used to gate whole route groups.

func IsAdmin(role string) bool {
	return role == core.RoleAdmin
}

func IsTeacherOrAdmin(role string) bool {
	return role == core.RoleTeacher || IsAdmin(role)
}

func IsStudentOrAdmin(role string) bool {
	return role == core.RoleStudent || IsAdmin(role)
}

// OwnsResource reports whether p is the owner referenced by ownerRef. Admins own everything.
func OwnsResource(p core.Principal, ownerRef string) bool {
	return IsAdmin(p.Role) || (ownerRef != "" && p.ID == ownerRef)
}
