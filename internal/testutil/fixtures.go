package testutil

import (
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/models"
)

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Email:     email,
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
		Language:  models.LanguageUz,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateStudent inserts a student user and profile.
func CreateStudent(t testing.TB, db *gorm.DB, email string) (*models.User, *models.StudentProfile) {
	t.Helper()
	user := CreateUser(t, db, email, models.RoleStudent)
	profile := &models.StudentProfile{
		UserID:      user.ID,
		DateOfBirth: models.DefaultDateOfBirth,
		Level:       models.MinLevel,
		Preferences: datatypes.NewJSONType(models.DefaultStudentPreferences()),
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	return user, profile
}

// CreateParent inserts a parent user and profile.
func CreateParent(t testing.TB, db *gorm.DB, email string) (*models.User, *models.ParentProfile) {
	t.Helper()
	user := CreateUser(t, db, email, models.RoleParent)
	profile := &models.ParentProfile{UserID: user.ID, NotificationPreferences: models.DefaultNotificationPreferences()}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("create parent: %v", err)
	}
	return user, profile
}

// CreateSubject inserts an active subject.
func CreateSubject(t testing.TB, db *gorm.DB, name string) *models.Subject {
	t.Helper()
	subject := &models.Subject{
		Name:     name,
		NameUz:   name,
		NameRu:   name,
		IsActive: true,
		AgeRange: datatypes.NewJSONType(models.AgeRange{Min: models.MinAge, Max: models.MaxAge}),
	}
	if err := db.Create(subject).Error; err != nil {
		t.Fatalf("create subject: %v", err)
	}
	return subject
}

// CreateLesson inserts an active lesson worth 10 points.
func CreateLesson(t testing.TB, db *gorm.DB, subject *models.Subject, title string, level int) *models.Lesson {
	t.Helper()
	lesson := &models.Lesson{
		SubjectID:    subject.ID,
		Title:        title,
		TitleUz:      title,
		TitleRu:      title,
		Type:         models.LessonInteractive,
		Level:        level,
		AgeMin:       models.MinAge,
		AgeMax:       models.MaxAge,
		PointsReward: models.DefaultLessonPoints,
		IsActive:     true,
	}
	if err := db.Create(lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return lesson
}

// CreateGame inserts an active game worth 5 points.
func CreateGame(t testing.TB, db *gorm.DB, name string, level int) *models.Game {
	t.Helper()
	game := &models.Game{
		Name:         name,
		NameUz:       name,
		NameRu:       name,
		Type:         models.GameMemory,
		Level:        level,
		AgeMin:       models.MinAge,
		AgeMax:       models.MaxAge,
		PointsReward: models.DefaultGamePoints,
		IsActive:     true,
	}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

// CreateAchievement inserts an active achievement with the given criteria.
func CreateAchievement(t testing.TB, db *gorm.DB, name string, points int, criteria models.Criteria) *models.Achievement {
	t.Helper()
	achievement := &models.Achievement{
		Name:         name,
		NameUz:       name,
		NameRu:       name,
		Type:         models.AchievementBadge,
		Category:     models.CategoryLearning,
		Criteria:     datatypes.NewJSONType(criteria),
		PointsReward: points,
		IsActive:     true,
	}
	if err := db.Create(achievement).Error; err != nil {
		t.Fatalf("create achievement: %v", err)
	}
	return achievement
}
