package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jgirmay/alif24/internal/common/database"
)

// Role is the account type carried by every user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleAdmin:
		return true
	}
	return false
}

type Language string

const (
	LanguageUz Language = "uz"
	LanguageRu Language = "ru"
)

// User is an account. Users are never hard-deleted; deactivation clears IsActive.
type User struct {
	database.BaseModel
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	FirstName        string     `gorm:"size:100;not null" json:"firstName"`
	LastName         string     `gorm:"size:100;not null" json:"lastName"`
	Phone            string     `gorm:"size:20" json:"phone,omitempty"`
	Role             Role       `gorm:"size:20;not null;default:student;index" json:"role"`
	Avatar           string     `gorm:"size:500" json:"avatar,omitempty"`
	Language         Language   `gorm:"size:2;not null;default:uz" json:"language"`
	IsActive         bool       `gorm:"not null" json:"isActive"`
	IsVerified       bool       `gorm:"not null;default:false" json:"isVerified"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	RefreshTokenHash string     `gorm:"size:255" json:"-"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type TeacherProfile struct {
	database.BaseModel
	UserID              uuid.UUID `gorm:"uniqueIndex;not null" json:"userId"`
	Specialization      string    `gorm:"size:200" json:"specialization,omitempty"`
	Qualification       string    `gorm:"size:200" json:"qualification,omitempty"`
	YearsOfExperience   int       `gorm:"not null;default:0" json:"yearsOfExperience"`
	Bio                 string    `json:"bio,omitempty"`
	Subjects            []string  `gorm:"serializer:json" json:"subjects"`
	TotalStudents       int       `gorm:"not null;default:0" json:"totalStudents"`
	TotalLessonsCreated int       `gorm:"not null;default:0" json:"totalLessonsCreated"`
	Rating              float64   `gorm:"not null;default:0" json:"rating"`
	IsVerified          bool      `gorm:"not null;default:false" json:"isVerified"`
	User                *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// NotificationPreferences controls which parent notifications are delivered.
type NotificationPreferences struct {
	Email        bool `json:"email"`
	Push         bool `json:"push"`
	SMS          bool `json:"sms"`
	WeeklyReport bool `json:"weeklyReport"`
	Achievements bool `json:"achievements"`
}

type ParentProfile struct {
	database.BaseModel
	UserID                  uuid.UUID               `gorm:"uniqueIndex;not null" json:"userId"`
	Occupation              string                  `gorm:"size:200" json:"occupation,omitempty"`
	NotificationPreferences NotificationPreferences `gorm:"serializer:json" json:"notificationPreferences"`
	ScreenTimeLimit         int                     `gorm:"not null;default:60" json:"screenTimeLimit"` // minutes per day
	User                    *User                   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// DefaultNotificationPreferences matches what a freshly registered parent gets.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, Push: true, WeeklyReport: true, Achievements: true}
}

type Relationship string

const (
	RelationshipMother   Relationship = "mother"
	RelationshipFather   Relationship = "father"
	RelationshipGuardian Relationship = "guardian"
	RelationshipOther    Relationship = "other"
)

// ParentStudent links a parent profile to a student profile.
type ParentStudent struct {
	database.BaseModel
	ParentID     uuid.UUID       `gorm:"uniqueIndex:idx_parent_student;not null" json:"parentId"`
	StudentID    uuid.UUID       `gorm:"uniqueIndex:idx_parent_student;not null;index" json:"studentId"`
	Relationship Relationship    `gorm:"size:20;not null;default:guardian" json:"relationship"`
	IsPrimary    bool            `gorm:"not null;default:false" json:"isPrimary"`
	Student      *StudentProfile `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
