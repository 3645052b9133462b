package models

import (
	"time"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// Department is scoped to one academic year and semester.
type Department struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string    `db:"semester_id" json:"semesterId"`
	DepartmentName string    `db:"department_name" json:"departmentName"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
	Path           string    `db:"-" json:"path"`
}

// Locate fills the resource path.
func (d *Department) Locate() {
	d.Path = docpath.Department(d.AcademicYearID, d.SemesterID, d.ID)
}

// Course belongs to a department.
type Course struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string    `db:"semester_id" json:"semesterId"`
	DepartmentID   string    `db:"department_id" json:"departmentId"`
	CourseName     string    `db:"course_name" json:"courseName"`
	CourseCode     string    `db:"course_code" json:"courseCode"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
	Path           string    `db:"-" json:"path"`
}

// Locate fills the resource path.
func (c *Course) Locate() {
	c.Path = docpath.Course(c.AcademicYearID, c.SemesterID, c.DepartmentID, c.ID)
}

// YearLevelNames lists the accepted year level names in order.
var YearLevelNames = []string{"1st Year", "2nd Year", "3rd Year", "4th Year"}

// YearLevel belongs to a course.
type YearLevel struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string    `db:"semester_id" json:"semesterId"`
	DepartmentID   string    `db:"department_id" json:"departmentId"`
	CourseID       string    `db:"course_id" json:"courseId"`
	YearLevelName  string    `db:"year_level_name" json:"yearLevelName"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
	Path           string    `db:"-" json:"path"`
}

// Locate fills the resource path.
func (y *YearLevel) Locate() {
	y.Path = docpath.YearLevel(y.AcademicYearID, y.SemesterID, y.DepartmentID, y.CourseID, y.ID)
}

// Section belongs to a year level and follows the period status lifecycle.
type Section struct {
	ID             string       `db:"id" json:"id"`
	AcademicYearID string       `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string       `db:"semester_id" json:"semesterId"`
	DepartmentID   string       `db:"department_id" json:"departmentId"`
	CourseID       string       `db:"course_id" json:"courseId"`
	YearLevelID    string       `db:"year_level_id" json:"yearLevelId"`
	SectionName    string       `db:"section_name" json:"sectionName"`
	Status         PeriodStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
	Path           string       `db:"-" json:"path"`
}

// Locate fills the resource path.
func (s *Section) Locate() {
	s.Path = docpath.Section(s.AcademicYearID, s.SemesterID, s.DepartmentID, s.CourseID, s.YearLevelID, s.ID)
}
