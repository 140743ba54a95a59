// Package models holds the persistent entities shared across the API.
package models

// All lists every entity for schema migration, parents before children.
func All() []interface{} {
	return []interface{}{
		&User{},
		&TeacherProfile{},
		&ParentProfile{},
		&StudentProfile{},
		&ParentStudent{},
		&Subject{},
		&Lesson{},
		&Game{},
		&Progress{},
		&GameSession{},
		&Achievement{},
		&StudentAchievement{},
		&Notification{},
	}
}
