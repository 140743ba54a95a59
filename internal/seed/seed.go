// Package seed loads demo accounts and the starter catalog. Running it twice
// leaves the database unchanged.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/models"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "Admin123!"

// Hasher hashes the demo password; auth.PasswordHasher satisfies it.
type Hasher interface {
	Hash(password string) (string, error)
}

// Summary counts rows created by a run.
type Summary struct {
	Users        int `json:"users"`
	Subjects     int `json:"subjects"`
	Achievements int `json:"achievements"`
}

type account struct {
	email, first, last string
	role               models.Role
	phone              string
}

var accounts = []account{
	{email: "admin@alif24.uz", first: "Admin", last: "User", role: models.RoleAdmin},
	{email: "teacher@alif24.uz", first: "Malika", last: "Karimova", role: models.RoleTeacher},
	{email: "parent@alif24.uz", first: "Bobur", last: "Alimov", role: models.RoleParent, phone: "+998901234567"},
	{email: "student@alif24.uz", first: "Amir", last: "Alimov", role: models.RoleStudent},
}

var subjects = []models.Subject{
	{Name: "Mathematics", NameUz: "Matematika", NameRu: "Математика", Description: "Numbers, counting and simple sums", Icon: "🔢", Color: "#FF6B6B", Order: 1},
	{Name: "Alphabet", NameUz: "Alifbo", NameRu: "Алфавит", Description: "Letters and first words", Icon: "📖", Color: "#4ECDC4", Order: 2},
	{Name: "Colors & Shapes", NameUz: "Ranglar va shakllar", NameRu: "Цвета и формы", Description: "Recognize colors and shapes", Icon: "🎨", Color: "#95E1D3", Order: 3},
	{Name: "Nature", NameUz: "Tabiat", NameRu: "Природа", Description: "Plants, weather and seasons", Icon: "🌿", Color: "#A8E6CE", Order: 4},
	{Name: "Animals", NameUz: "Hayvonlar", NameRu: "Животные", Description: "Animals and where they live", Icon: "🦁", Color: "#FFEAA7", Order: 5},
	{Name: "Music", NameUz: "Musiqa", NameRu: "Музыка", Description: "Rhythm, songs and sounds", Icon: "🎵", Color: "#DDA0DD", Order: 6},
}

type achievement struct {
	name, nameUz, nameRu, description, icon string
	kind                                    models.AchievementType
	category                                models.AchievementCategory
	criteria                                models.Criteria
	points                                  int
}

var achievements = []achievement{
	{"First Steps", "Birinchi qadamlar", "Первые шаги", "Complete your first lesson", "🌟", models.AchievementBadge, models.CategoryLearning, models.Criteria{LessonsCompleted: 1}, 50},
	{"Curious Explorer", "Qiziquvchan kashfiyotchi", "Любознательный исследователь", "Complete 10 lessons", "🔭", models.AchievementBadge, models.CategoryLearning, models.Criteria{LessonsCompleted: 10}, 100},
	{"Super Learner", "Super o'rganuvchi", "Супер ученик", "Get a perfect score", "🏆", models.AchievementTrophy, models.CategoryLearning, models.Criteria{PerfectScore: true}, 150},
	{"Game Master", "O'yin ustasi", "Мастер игр", "Play 20 games", "🎮", models.AchievementBadge, models.CategoryGame, models.Criteria{GamesPlayed: 20}, 100},
	{"Week Warrior", "Haftalik jangchi", "Недельный воин", "Learn 7 days in a row", "🔥", models.AchievementBadge, models.CategoryStreak, models.Criteria{StreakDays: 7}, 200},
	{"Math Wizard", "Matematika sehrgari", "Математический волшебник", "Finish every Mathematics lesson", "🧙", models.AchievementTrophy, models.CategorySpecial, models.Criteria{SubjectCompleted: "Mathematics"}, 500},
}

// Run seeds everything in one transaction.
func Run(ctx context.Context, db *gorm.DB, hasher Hasher, log *zap.Logger) (*Summary, error) {
	hash, err := hasher.Hash(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	var sum Summary
	err = database.InTx(ctx, db, func(ctx context.Context) error {
		tx := database.Conn(ctx, db)
		if err := seedAccounts(tx, hash, &sum); err != nil {
			return err
		}
		if err := seedSubjects(tx, &sum); err != nil {
			return err
		}
		return seedAchievements(tx, &sum)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Seed complete",
		zap.Int("users", sum.Users),
		zap.Int("subjects", sum.Subjects),
		zap.Int("achievements", sum.Achievements),
	)
	return &sum, nil
}

// firstOrCreate loads the row matching query into dest, inserting dest when
// none exists. It reports whether a row was inserted.
func firstOrCreate(tx *gorm.DB, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := tx.Where(query, args...).Take(dest).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, tx.Create(dest).Error
}

func seedAccounts(tx *gorm.DB, hash string, sum *Summary) error {
	ids := map[models.Role]*models.User{}
	for _, a := range accounts {
		user := &models.User{
			Email:        a.email,
			PasswordHash: hash,
			FirstName:    a.first,
			LastName:     a.last,
			Phone:        a.phone,
			Role:         a.role,
			Language:     models.LanguageUz,
			IsActive:     true,
			IsVerified:   true,
		}
		created, err := firstOrCreate(tx, user, "email = ?", a.email)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", a.email, err)
		}
		if created {
			sum.Users++
		}
		ids[a.role] = user
	}

	teacher := &models.TeacherProfile{
		UserID:            ids[models.RoleTeacher].ID,
		Specialization:    "Early Childhood Education",
		Qualification:     "Bachelor in Education",
		YearsOfExperience: 5,
		Bio:               "Passionate educator with 5 years of experience teaching young children.",
		Subjects:          []string{"Math", "Reading", "Science"},
	}
	if _, err := firstOrCreate(tx, teacher, "user_id = ?", teacher.UserID); err != nil {
		return fmt.Errorf("seed teacher profile: %w", err)
	}

	parent := &models.ParentProfile{
		UserID:                  ids[models.RoleParent].ID,
		Occupation:              "Engineer",
		NotificationPreferences: models.DefaultNotificationPreferences(),
		ScreenTimeLimit:         60,
	}
	if _, err := firstOrCreate(tx, parent, "user_id = ?", parent.UserID); err != nil {
		return fmt.Errorf("seed parent profile: %w", err)
	}

	student := &models.StudentProfile{
		UserID:      ids[models.RoleStudent].ID,
		DateOfBirth: time.Date(2019, time.March, 15, 0, 0, 0, 0, time.UTC),
		Grade:       "Pre-K",
		Level:       models.MinLevel,
		Preferences: datatypes.NewJSONType(models.DefaultStudentPreferences()),
	}
	if _, err := firstOrCreate(tx, student, "user_id = ?", student.UserID); err != nil {
		return fmt.Errorf("seed student profile: %w", err)
	}

	link := &models.ParentStudent{
		ParentID:     parent.ID,
		StudentID:    student.ID,
		Relationship: models.RelationshipFather,
		IsPrimary:    true,
	}
	if _, err := firstOrCreate(tx, link, "parent_id = ? AND student_id = ?", parent.ID, student.ID); err != nil {
		return fmt.Errorf("seed parent link: %w", err)
	}
	return nil
}

func seedSubjects(tx *gorm.DB, sum *Summary) error {
	for _, s := range subjects {
		subject := s
		subject.DescriptionUz = s.Description
		subject.DescriptionRu = s.Description
		subject.IsActive = true
		subject.AgeRange = datatypes.NewJSONType(models.AgeRange{Min: models.MinAge, Max: models.MaxAge})
		created, err := firstOrCreate(tx, &subject, "name = ?", s.Name)
		if err != nil {
			return fmt.Errorf("seed subject %s: %w", s.Name, err)
		}
		if created {
			sum.Subjects++
		}
	}
	return nil
}

func seedAchievements(tx *gorm.DB, sum *Summary) error {
	for i, a := range achievements {
		row := &models.Achievement{
			Name:          a.name,
			NameUz:        a.nameUz,
			NameRu:        a.nameRu,
			Description:   a.description,
			DescriptionUz: a.description,
			DescriptionRu: a.description,
			Icon:          a.icon,
			Type:          a.kind,
			Category:      a.category,
			Criteria:      datatypes.NewJSONType(a.criteria),
			PointsReward:  a.points,
			IsActive:      true,
			Order:         i + 1,
		}
		created, err := firstOrCreate(tx, row, "name = ?", a.name)
		if err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.name, err)
		}
		if created {
			sum.Achievements++
		}
	}
	return nil
}
