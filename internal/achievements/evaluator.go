package achievements

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/rewards"
)

// Awarder grants an achievement; rewards.Engine satisfies it.
type Awarder interface {
	AwardAchievement(ctx context.Context, studentID, achievementID uuid.UUID) (*rewards.Award, error)
}

// Signal describes the activity that triggered an evaluation.
type Signal struct {
	LastScore *float64
}

// Facts are the student data criteria are checked against.
type Facts struct {
	Student *models.StudentProfile
	Signal  Signal
	// SubjectCompleted reports whether every active lesson of the named
	// subject is completed.
	SubjectCompleted func(subject string) (bool, error)
}

// Matches reports whether every populated criterion holds. Criteria with no
// populated field never match.
func Matches(c models.Criteria, f Facts) (bool, error) {
	st := f.Student
	checked := false
	check := func(ok bool) bool {
		checked = true
		return ok
	}

	if c.LessonsCompleted > 0 && !check(st.TotalLessonsCompleted >= c.LessonsCompleted) {
		return false, nil
	}
	if c.GamesPlayed > 0 && !check(st.TotalGamesPlayed >= c.GamesPlayed) {
		return false, nil
	}
	if c.StreakDays > 0 && !check(st.CurrentStreak >= c.StreakDays) {
		return false, nil
	}
	if c.TotalPoints > 0 && !check(st.TotalPoints >= c.TotalPoints) {
		return false, nil
	}
	if c.AverageScore > 0 && !check(st.ActivityCount() > 0 && st.AverageScore >= c.AverageScore) {
		return false, nil
	}
	if c.Level > 0 && !check(st.Level >= c.Level) {
		return false, nil
	}
	if c.PerfectScore && !check(f.Signal.LastScore != nil && *f.Signal.LastScore >= 100) {
		return false, nil
	}
	if c.SubjectCompleted != "" {
		if f.SubjectCompleted == nil {
			return false, nil
		}
		done, err := f.SubjectCompleted(c.SubjectCompleted)
		if err != nil {
			return false, err
		}
		if !check(done) {
			return false, nil
		}
	}
	return checked, nil
}

// Evaluator awards every active, not yet earned achievement whose criteria a
// student satisfies.
type Evaluator struct {
	db      *gorm.DB
	catalog *Service
	awarder Awarder
	log     *zap.Logger
}

func NewEvaluator(db *gorm.DB, catalog *Service, awarder Awarder, log *zap.Logger) *Evaluator {
	return &Evaluator{db: db, catalog: catalog, awarder: awarder, log: log}
}

// Evaluate returns the achievements newly awarded by this call.
func (e *Evaluator) Evaluate(ctx context.Context, studentID uuid.UUID, sig Signal) ([]models.Achievement, error) {
	var student models.StudentProfile
	if err := database.Conn(ctx, e.db).Take(&student, "id = ?", studentID).Error; err != nil {
		return nil, errors.FromGorm(err, "Student")
	}

	catalog, err := e.catalog.List(ctx, false)
	if err != nil {
		return nil, err
	}
	earned, err := e.catalog.earnedIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}

	facts := Facts{
		Student: &student,
		Signal:  sig,
		SubjectCompleted: func(subject string) (bool, error) {
			return e.subjectCompleted(ctx, studentID, subject)
		},
	}

	// Awards add points, so repeat until a pass grants nothing new.
	var awarded []models.Achievement
	for {
		granted := 0
		for _, a := range catalog {
			if earned[a.ID] {
				continue
			}
			ok, err := Matches(a.Criteria.Data(), facts)
			if err != nil {
				return awarded, err
			}
			if !ok {
				continue
			}

			award, err := e.awarder.AwardAchievement(ctx, studentID, a.ID)
			if err != nil {
				return awarded, err
			}
			earned[a.ID] = true
			if award.Created {
				awarded = append(awarded, a)
				student.TotalPoints += a.PointsReward
				granted++
			}
		}
		if granted == 0 {
			break
		}
	}

	if len(awarded) > 0 {
		e.log.Debug("Achievements evaluated",
			zap.String("student_id", studentID.String()),
			zap.Int("awarded", len(awarded)),
		)
	}
	return awarded, nil
}

func (e *Evaluator) subjectCompleted(ctx context.Context, studentID uuid.UUID, subject string) (bool, error) {
	conn := database.Conn(ctx, e.db)

	var total int64
	err := conn.Model(&models.Lesson{}).
		Joins("JOIN subjects ON subjects.id = lessons.subject_id").
		Where("subjects.name = ? AND lessons.is_active = ?", subject, true).
		Count(&total).Error
	if err != nil {
		return false, errors.FromGorm(err, "Subject")
	}
	if total == 0 {
		return false, nil
	}

	var done int64
	err = conn.Model(&models.Progress{}).
		Joins("JOIN lessons ON lessons.id = "+models.ProgressTable+".lesson_id").
		Joins("JOIN subjects ON subjects.id = lessons.subject_id").
		Where("subjects.name = ? AND lessons.is_active = ?", subject, true).
		Where(models.ProgressTable+".student_id = ? AND "+models.ProgressTable+".status = ?", studentID, models.StatusCompleted).
		Count(&done).Error
	if err != nil {
		return false, errors.FromGorm(err, "Progress")
	}
	return done >= total, nil
}
