package models

import (
	"time"

	"github.com/noah-isme/school-admin-api/pkg/docpath"
)

// UserRole partitions accounts (users/{role}/accounts/{uid}) and drives route access.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleAcademicHead UserRole = "academic_head"
	RoleProgramHead  UserRole = "program_head"
	RoleTeacher      UserRole = "teacher"
	RoleStudent      UserRole = "student"
)

// ProfileRoles are the roles that own profile documents.
var ProfileRoles = []UserRole{RoleStudent, RoleTeacher, RoleProgramHead, RoleAcademicHead}

// IsProfileRole reports whether role owns profile documents.
func IsProfileRole(role UserRole) bool {
	for _, r := range ProfileRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Gender values accepted on profiles and bulk uploads.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// UserProfile holds personal and academic-assignment fields for one account.
type UserProfile struct {
	ID            string     `db:"id" json:"id"`
	Role          UserRole   `db:"role" json:"role"`
	AccountNumber string     `db:"account_number" json:"accountNumber"`
	Email         string     `db:"email" json:"email"`
	FirstName     string     `db:"first_name" json:"firstName"`
	MiddleName    string     `db:"middle_name" json:"middleName,omitempty"`
	LastName      string     `db:"last_name" json:"lastName"`
	Gender        string     `db:"gender" json:"gender"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Phone         string     `db:"phone" json:"phone,omitempty"`
	Address       string     `db:"address" json:"address,omitempty"`
	DepartmentID  *string    `db:"department_id" json:"departmentId,omitempty"`
	CourseID      *string    `db:"course_id" json:"courseId,omitempty"`
	YearLevelID   *string    `db:"year_level_id" json:"yearLevelId,omitempty"`
	SectionID     *string    `db:"section_id" json:"sectionId,omitempty"`
	FaceEnrolled  bool       `db:"face_enrolled" json:"faceEnrolled"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
	Path          string     `db:"-" json:"path"`
}

// Locate fills the resource path.
func (u *UserProfile) Locate() {
	u.Path = docpath.Account(string(u.Role), u.ID)
}

// FullName joins first and last names.
func (u *UserProfile) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing profiles.
type UserFilter struct {
	Role         UserRole
	DepartmentID string
	SectionID    string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
