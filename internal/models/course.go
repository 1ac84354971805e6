package models

import "time"

// Course roles.
const (
	RoleStudent        = "student"
	RoleTeacher        = "teacher"
	RoleEditingTeacher = "editingteacher"
	RoleAdmin          = "admin"
)

// User is the minimal account profile needed for grading and alerts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;uniqueIndex" json:"username"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Email     string    `gorm:"size:255" json:"email"`
	MailHTML  bool      `gorm:"not null" json:"mail_html"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course groups assignments and enrolments.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ShortName string    `gorm:"size:100;not null" json:"short_name"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment binds a user to a course with a role.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_user_role" json:"course_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_user_role" json:"user_id"`
	Role      string    `gorm:"size:32;not null;uniqueIndex:idx_enrollment_course_user_role" json:"role"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is a course group used by separate/visible group modes.
type Group struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"not null;index" json:"course_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

// TableName avoids clashing with the GROUPS keyword.
func (Group) TableName() string {
	return "course_groups"
}

// GroupMember places a user inside a course group.
type GroupMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_group_member" json:"user_id"`
}

// TableName keeps membership rows next to course_groups.
func (GroupMember) TableName() string {
	return "course_group_members"
}

// IsGraderRole reports whether the role carries the grading capability.
func IsGraderRole(role string) bool {
	switch role {
	case RoleTeacher, RoleEditingTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}
