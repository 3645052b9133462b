// Package lifecycle enforces the single-active rule shared by academic years,
// semesters and sections. It plans status changes over an in-memory tree and
// leaves persistence to the caller.
package lifecycle

import (
	"errors"
	"strings"

	"github.com/noah-isme/school-admin-api/internal/models"
)

var (
	// ErrTargetNotFound is returned when the record to activate is not among its siblings.
	ErrTargetNotFound = errors.New("lifecycle: target not among siblings")
	// ErrActiveRecord blocks deletion of an Active record.
	ErrActiveRecord = errors.New("lifecycle: record is active")
	// ErrHasChildren blocks deletion of a record that still owns children.
	ErrHasChildren = errors.New("lifecycle: record has children")
	// ErrParentNotActive blocks an Active record under a parent that is not Active.
	ErrParentNotActive = errors.New("lifecycle: parent is not active")
)

// Kinds of records that carry a period status.
const (
	KindAcademicYear = "academic_year"
	KindSemester     = "semester"
	KindSection      = "section"
)

// Record is one node of the cascade tree. Children carry status only when they
// take part in the cascade (semesters under a year, sections under a semester).
type Record struct {
	ID       string
	Kind     string
	Path     string
	Status   models.PeriodStatus
	Children []Record
}

// Change is a single status transition.
type Change struct {
	ID   string
	Kind string
	Path string
	From models.PeriodStatus
	To   models.PeriodStatus
}

// Plan is the ordered list of status changes produced by an activation or archive.
// The target change is always last.
type Plan struct {
	TargetID string
	Changes  []Change
}

// Archived returns the changes that archive a record.
func (p Plan) Archived() []Change {
	out := make([]Change, 0, len(p.Changes))
	for _, c := range p.Changes {
		if c.To == models.StatusArchived {
			out = append(out, c)
		}
	}
	return out
}

// Target returns the change applied to the plan's target.
func (p Plan) Target() Change {
	if len(p.Changes) == 0 {
		return Change{}
	}
	return p.Changes[len(p.Changes)-1]
}

// PlanActivation makes targetID the only Active record among siblings. Every other
// Active sibling is archived together with its Active descendants. The target's
// own children are never touched.
func PlanActivation(targetID string, siblings []Record) (Plan, error) {
	var target *Record
	for i := range siblings {
		if siblings[i].ID == targetID {
			target = &siblings[i]
			break
		}
	}
	if target == nil {
		return Plan{}, ErrTargetNotFound
	}

	plan := Plan{TargetID: targetID}
	for _, s := range siblings {
		if s.ID == targetID || s.Status != models.StatusActive {
			continue
		}
		plan.Changes = append(plan.Changes, archiveTree(s)...)
	}
	plan.Changes = append(plan.Changes, Change{
		ID:   target.ID,
		Kind: target.Kind,
		Path: target.Path,
		From: target.Status,
		To:   models.StatusActive,
	})
	return plan, nil
}

// PlanArchive supersedes a single record directly, archiving its Active descendants.
// The record itself is archived whatever its current status.
func PlanArchive(record Record) Plan {
	plan := Plan{TargetID: record.ID}
	for _, c := range record.Children {
		if c.Status == models.StatusActive {
			plan.Changes = append(plan.Changes, archiveTree(c)...)
		}
	}
	plan.Changes = append(plan.Changes, Change{
		ID:   record.ID,
		Kind: record.Kind,
		Path: record.Path,
		From: record.Status,
		To:   models.StatusArchived,
	})
	return plan
}

func archiveTree(r Record) []Change {
	changes := []Change{{ID: r.ID, Kind: r.Kind, Path: r.Path, From: r.Status, To: models.StatusArchived}}
	for _, c := range r.Children {
		if c.Status == models.StatusActive {
			changes = append(changes, archiveTree(c)...)
		}
	}
	return changes
}

// Apply returns a copy of records with the plan's changes applied.
func (p Plan) Apply(records []Record) []Record {
	next := make(map[string]models.PeriodStatus, len(p.Changes))
	for _, c := range p.Changes {
		next[c.Kind+"/"+c.ID] = c.To
	}
	return applyTo(records, next)
}

func applyTo(records []Record, next map[string]models.PeriodStatus) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
		if status, ok := next[r.Kind+"/"+r.ID]; ok {
			out[i].Status = status
		}
		out[i].Children = applyTo(r.Children, next)
	}
	return out
}

// CheckDeletable reports whether a record can be removed. The Active check wins
// over the children check.
func CheckDeletable(status models.PeriodStatus, childCount int) error {
	if status == models.StatusActive {
		return ErrActiveRecord
	}
	if childCount > 0 {
		return ErrHasChildren
	}
	return nil
}

// CheckChildStatus reports whether a record may take status under a parent
// with parentStatus. Only Active is constrained.
func CheckChildStatus(status, parentStatus models.PeriodStatus) error {
	if status == models.StatusActive && parentStatus != models.StatusActive {
		return ErrParentNotActive
	}
	return nil
}

// Named is an existing record name within one parent scope.
type Named struct {
	ID   string
	Name string
}

// NormalizeName trims surrounding whitespace. Case is preserved.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// DuplicateName reports whether candidate collides with another record in the scope.
// Comparison is exact after trimming; selfID is skipped so renames to the same name pass.
func DuplicateName(candidate, selfID string, existing []Named) bool {
	want := NormalizeName(candidate)
	for _, e := range existing {
		if selfID != "" && e.ID == selfID {
			continue
		}
		if NormalizeName(e.Name) == want {
			return true
		}
	}
	return false
}

// ActiveCount counts Active records among siblings.
func ActiveCount(records []Record) int {
	n := 0
	for _, r := range records {
		if r.Status == models.StatusActive {
			n++
		}
	}
	return n
}

// Violation describes a sibling set holding more than one Active record.
type Violation struct {
	Scope  string   `json:"scope"`
	Active []string `json:"active"`
}

// Violations walks the tree and reports every sibling set with more than one Active
// record. scope names the path of the parent for the top-level set.
func Violations(scope string, records []Record) []Violation {
	var out []Violation
	if ActiveCount(records) > 1 {
		v := Violation{Scope: scope}
		for _, r := range records {
			if r.Status == models.StatusActive {
				v.Active = append(v.Active, r.ID)
			}
		}
		out = append(out, v)
	}
	for _, r := range records {
		if len(r.Children) > 0 {
			out = append(out, Violations(r.Path, r.Children)...)
		}
	}
	return out
}
