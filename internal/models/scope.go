package models

// Scope carries the ancestor identifiers of a record in the academic hierarchy.
// Fields below the record's own level are left empty.
type Scope struct {
	AcademicYearID string `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string `db:"semester_id" json:"semesterId"`
	DepartmentID   string `db:"department_id" json:"departmentId,omitempty"`
	CourseID       string `db:"course_id" json:"courseId,omitempty"`
	YearLevelID    string `db:"year_level_id" json:"yearLevelId,omitempty"`
	SectionID      string `db:"section_id" json:"sectionId,omitempty"`
}
