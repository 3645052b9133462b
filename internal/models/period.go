package models

import (
	"time"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// PeriodStatus is the three-state lifecycle shared by academic years, semesters and sections.
type PeriodStatus string

const (
	StatusActive   PeriodStatus = "Active"
	StatusUpcoming PeriodStatus = "Upcoming"
	StatusArchived PeriodStatus = "Archived"
)

// Valid reports whether the status is one of the known literals (exact casing).
func (s PeriodStatus) Valid() bool {
	switch s {
	case StatusActive, StatusUpcoming, StatusArchived:
		return true
	}
	return false
}

// Semester names accepted by the registrar.
const (
	FirstSemester  = "1st Semester"
	SecondSemester = "2nd Semester"
)

// AcademicYear is a school year such as "S.Y - 2024-2025".
type AcademicYear struct {
	ID        string       `db:"id" json:"id"`
	AcadYear  string       `db:"acad_year" json:"acadYear"`
	Status    PeriodStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
	Path      string       `db:"-" json:"path"`
}

// Locate fills the resource path.
func (y *AcademicYear) Locate() {
	y.Path = docpath.AcademicYear(y.ID)
}

// Semester belongs to exactly one academic year.
type Semester struct {
	ID             string       `db:"id" json:"id"`
	AcademicYearID string       `db:"academic_year_id" json:"academicYearId"`
	SemesterName   string       `db:"semester_name" json:"semesterName"`
	StartDate      time.Time    `db:"start_date" json:"startDate"`
	EndDate        time.Time    `db:"end_date" json:"endDate"`
	Status         PeriodStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
	Path           string       `db:"-" json:"path"`
}

// Locate fills the resource path.
func (s *Semester) Locate() {
	s.Path = docpath.Semester(s.AcademicYearID, s.ID)
}

// PeriodFilter narrows academic year and semester listings.
type PeriodFilter struct {
	AcademicYearID string
	Status         PeriodStatus
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// ActiveSession is the currently active academic year and semester pair.
// Semester is nil when the active year has no active semester yet.
type ActiveSession struct {
	AcademicYear *AcademicYear `json:"academicYear"`
	Semester     *Semester     `json:"semester,omitempty"`
	ResolvedAt   time.Time     `json:"resolvedAt"`
}

// Transition reports the outcome of an activation or archive.
type Transition struct {
	ID       string       `json:"id"`
	Kind     string       `json:"kind"`
	Path     string       `json:"path"`
	Status   PeriodStatus `json:"status"`
	Archived []string     `json:"archived"`
}
