// Package docpath builds and inspects the hierarchical resource paths shared with the
// document-store layout (academic_years/{id}/semesters/{id}/...).
package docpath

import "strings"

// Collection names. The casing is part of the storage contract.
const (
	AcademicYears = "academic_years"
	Semesters     = "semesters"
	Departments   = "departments"
	Courses       = "courses"
	YearLevels    = "year_levels"
	Sections      = "sections"
	Subjects      = "subjects"
	Schedules     = "schedules"
	Rooms         = "rooms"
	Users         = "users"
	Accounts      = "accounts"
	Notifications = "notifications"
	InboxHistory  = "InboxHistory"
	Requests      = "requests"
)

// Join concatenates non-empty segments with "/".
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// AcademicYear returns academic_years/{yearID}.
func AcademicYear(yearID string) string {
	return Join(AcademicYears, yearID)
}

// Semester returns the path of a semester document.
func Semester(yearID, semesterID string) string {
	return Join(AcademicYear(yearID), Semesters, semesterID)
}

// Department returns the path of a department document.
func Department(yearID, semesterID, departmentID string) string {
	return Join(Semester(yearID, semesterID), Departments, departmentID)
}

// Course returns the path of a course document.
func Course(yearID, semesterID, departmentID, courseID string) string {
	return Join(Department(yearID, semesterID, departmentID), Courses, courseID)
}

// YearLevel returns the path of a year level document.
func YearLevel(yearID, semesterID, departmentID, courseID, yearLevelID string) string {
	return Join(Course(yearID, semesterID, departmentID, courseID), YearLevels, yearLevelID)
}

// Section returns the path of a section document.
func Section(yearID, semesterID, departmentID, courseID, yearLevelID, sectionID string) string {
	return Join(YearLevel(yearID, semesterID, departmentID, courseID, yearLevelID), Sections, sectionID)
}

// Subject returns the path of a subject document (child of a year level).
func Subject(yearID, semesterID, departmentID, courseID, yearLevelID, subjectID string) string {
	return Join(YearLevel(yearID, semesterID, departmentID, courseID, yearLevelID), Subjects, subjectID)
}

// Schedule returns the path of a schedule document (child of a section).
func Schedule(yearID, semesterID, departmentID, courseID, yearLevelID, sectionID, scheduleID string) string {
	return Join(Section(yearID, semesterID, departmentID, courseID, yearLevelID, sectionID), Schedules, scheduleID)
}

// Room returns rooms/{roomID}.
func Room(roomID string) string {
	return Join(Rooms, roomID)
}

// Account returns users/{role}/accounts/{uid}.
func Account(role, uid string) string {
	return Join(Users, role, Accounts, uid)
}

// InboxEntry returns users/program_head/accounts/{uid}/InboxHistory/{entryID}.
func InboxEntry(programHeadID, entryID string) string {
	return Join(Account("program_head", programHeadID), InboxHistory, entryID)
}

// Notification returns notifications/{id}.
func Notification(id string) string {
	return Join(Notifications, id)
}

// Request returns requests/{id}.
func Request(id string) string {
	return Join(Requests, id)
}

// HasPrefix reports whether path lies at or below prefix, comparing whole segments.
// An empty prefix matches every path.
func HasPrefix(path, prefix string) bool {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return true
	}
	path = strings.Trim(path, "/")
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// Parent strips the trailing "{collection}/{id}" pair of a document path.
func Parent(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) <= 2 {
		return ""
	}
	return strings.Join(segments[:len(segments)-2], "/")
}
