package models

import (
	"time"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// Room is a physical classroom referenced by schedules.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Floor     string    `db:"floor" json:"floor"`
	RoomNo    string    `db:"room_no" json:"roomNo"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Path      string    `db:"-" json:"path"`
}

// Locate fills the resource path.
func (r *Room) Locate() {
	r.Path = docpath.Room(r.ID)
}

// DisplayName renders the room the way schedules denormalise it.
func (r *Room) DisplayName() string {
	return r.Floor + " - " + r.RoomNo
}

// Days flags the weekdays a schedule meets on.
type Days struct {
	Monday    bool `db:"monday" json:"monday"`
	Tuesday   bool `db:"tuesday" json:"tuesday"`
	Wednesday bool `db:"wednesday" json:"wednesday"`
	Thursday  bool `db:"thursday" json:"thursday"`
	Friday    bool `db:"friday" json:"friday"`
	Saturday  bool `db:"saturday" json:"saturday"`
	Sunday    bool `db:"sunday" json:"sunday"`
}

// Flags returns the day flags in Monday..Sunday order.
func (d Days) Flags() [7]bool {
	return [7]bool{d.Monday, d.Tuesday, d.Wednesday, d.Thursday, d.Friday, d.Saturday, d.Sunday}
}

// Any reports whether at least one day is set.
func (d Days) Any() bool {
	for _, f := range d.Flags() {
		if f {
			return true
		}
	}
	return false
}

// Overlaps reports whether the two day sets share a day.
func (d Days) Overlaps(other Days) bool {
	a, b := d.Flags(), other.Flags()
	for i := range a {
		if a[i] && b[i] {
			return true
		}
	}
	return false
}

// Labels returns the short names of the set days.
func (d Days) Labels() []string {
	names := [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	labels := make([]string, 0, 7)
	for i, f := range d.Flags() {
		if f {
			labels = append(labels, names[i])
		}
	}
	return labels
}

// Schedule places a subject, instructor and room on a section's timetable.
// StartTime and EndTime are 24h "HH:MM" strings.
type Schedule struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academicYearId"`
	SemesterID     string    `db:"semester_id" json:"semesterId"`
	DepartmentID   string    `db:"department_id" json:"departmentId"`
	CourseID       string    `db:"course_id" json:"courseId"`
	YearLevelID    string    `db:"year_level_id" json:"yearLevelId"`
	SectionID      string    `db:"section_id" json:"sectionId"`
	RoomID         string    `db:"room_id" json:"roomId"`
	RoomName       string    `db:"room_name" json:"roomName"`
	InstructorID   string    `db:"instructor_id" json:"instructorId"`
	SubjectCode    string    `db:"subject_code" json:"subjectCode"`
	SubjectName    string    `db:"subject_name" json:"subjectName"`
	StartTime      string    `db:"start_time" json:"startTime"`
	EndTime        string    `db:"end_time" json:"endTime"`
	Days
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Path      string    `db:"-" json:"path"`
}

// Locate fills the resource path.
func (s *Schedule) Locate() {
	s.Path = docpath.Schedule(s.AcademicYearID, s.SemesterID, s.DepartmentID, s.CourseID, s.YearLevelID, s.SectionID, s.ID)
}

// ScheduleConflict describes an existing schedule that collides with a proposed one.
type ScheduleConflict struct {
	ScheduleID string `json:"scheduleId"`
	SectionID  string `json:"sectionId"`
	Dimension  string `json:"dimension"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Path       string `json:"path"`
}
