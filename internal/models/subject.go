package models

import (
	"time"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// ReviewStatus is the approval state of subjects and requests.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "Pending"
	ReviewApproved ReviewStatus = "Approved"
	ReviewRejected ReviewStatus = "Rejected"
)

// Subject is offered to a year level and must be approved before it is scheduled.
type Subject struct {
	ID             string       `db:"id" json:"id"`
	AcademicYearID string       `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string       `db:"semester_id" json:"semesterId"`
	DepartmentID   string       `db:"department_id" json:"departmentId"`
	CourseID       string       `db:"course_id" json:"courseId"`
	YearLevelID    string       `db:"year_level_id" json:"yearLevelId"`
	SubjectCode    string       `db:"subject_code" json:"subjectCode"`
	SubjectName    string       `db:"subject_name" json:"subjectName"`
	Units          int          `db:"units" json:"units"`
	WithLaboratory bool         `db:"with_laboratory" json:"withLaboratory"`
	Status         ReviewStatus `db:"status" json:"status"`
	CreatedBy      string       `db:"created_by" json:"createdBy"`
	ReviewedBy     *string      `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time   `db:"reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
	Path           string       `db:"-" json:"path"`
}

// Locate fills the resource path.
func (s *Subject) Locate() {
	s.Path = docpath.Subject(s.AcademicYearID, s.SemesterID, s.DepartmentID, s.CourseID, s.YearLevelID, s.ID)
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	YearLevelID string
	Status      ReviewStatus
	Search      string
}
