package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type GameInput struct {
	SubjectID     *uuid.UUID      `json:"subjectId"`
	Name          string          `json:"name" binding:"required,min=3,max=200"`
	NameUz        string          `json:"nameUz" binding:"required,min=3,max=200"`
	NameRu        string          `json:"nameRu" binding:"required,min=3,max=200"`
	Description   string          `json:"description"`
	DescriptionUz string          `json:"descriptionUz"`
	DescriptionRu string          `json:"descriptionRu"`
	Type          models.GameType `json:"type" binding:"omitempty,oneof=puzzle memory matching quiz adventure counting spelling"`
	Level         int             `json:"level" binding:"omitempty,min=1,max=10"`
	AgeMin        int             `json:"ageMin" binding:"omitempty,min=4,max=7"`
	AgeMax        int             `json:"ageMax" binding:"omitempty,min=4,max=7"`
	Config        datatypes.JSON  `json:"config"`
	Thumbnail     string          `json:"thumbnail" binding:"omitempty,url,max=500"`
	PointsReward  *int            `json:"pointsReward" binding:"omitempty,min=0"`
	TimeLimit     int             `json:"timeLimit" binding:"omitempty,min=0"`
}

type GameUpdate struct {
	SubjectID     *uuid.UUID       `json:"subjectId"`
	Name          *string          `json:"name" binding:"omitempty,min=3,max=200"`
	NameUz        *string          `json:"nameUz" binding:"omitempty,min=3,max=200"`
	NameRu        *string          `json:"nameRu" binding:"omitempty,min=3,max=200"`
	Description   *string          `json:"description"`
	DescriptionUz *string          `json:"descriptionUz"`
	DescriptionRu *string          `json:"descriptionRu"`
	Type          *models.GameType `json:"type" binding:"omitempty,oneof=puzzle memory matching quiz adventure counting spelling"`
	Level         *int             `json:"level" binding:"omitempty,min=1,max=10"`
	AgeMin        *int             `json:"ageMin" binding:"omitempty,min=4,max=7"`
	AgeMax        *int             `json:"ageMax" binding:"omitempty,min=4,max=7"`
	Config        datatypes.JSON   `json:"config"`
	Thumbnail     *string          `json:"thumbnail" binding:"omitempty,url,max=500"`
	PointsReward  *int             `json:"pointsReward" binding:"omitempty,min=0"`
	TimeLimit     *int             `json:"timeLimit" binding:"omitempty,min=0"`
	IsActive      *bool            `json:"isActive"`
}

var gameNames = []string{"name", "name_uz", "name_ru"}

func activeGames() repository.Scope {
	return repository.Where("is_active = ?", true)
}

// Games lists active games matching the filter.
func (s *Service) Games(ctx context.Context, f Filter) (*database.PaginatedResult, error) {
	scopes := append(f.scopes(gameNames...),
		activeGames(),
		repository.Preload("Subject"),
		repository.OrderBy("level ASC, created_at ASC"),
	)
	return s.games.Paginate(ctx, database.NewPagination(f.Page, f.Limit), scopes...)
}

// GamesFor recommends active games near the student's level and suited to their age.
func (s *Service) GamesFor(ctx context.Context, student *models.StudentProfile, f Filter, now time.Time) (*database.PaginatedResult, error) {
	scopes := append(f.scopes(gameNames...), ageFits(student.Age(now)))
	if f.Level == 0 {
		scopes = append(scopes, levelNear(student.Level))
	}
	scopes = append(scopes,
		activeGames(),
		repository.Preload("Subject"),
		repository.OrderBy("level ASC, total_plays DESC"),
	)
	return s.games.Paginate(ctx, database.NewPagination(f.Page, f.Limit), scopes...)
}

func (s *Service) Game(ctx context.Context, viewer *middleware.Principal, id uuid.UUID) (*models.Game, error) {
	scopes := []repository.Scope{repository.Preload("Subject")}
	if !seesDrafts(viewer) {
		scopes = append(scopes, activeGames())
	}
	return s.games.FindByID(ctx, id, scopes...)
}

func (s *Service) CreateGame(ctx context.Context, in GameInput) (*models.Game, error) {
	game := &models.Game{
		SubjectID:     in.SubjectID,
		Name:          in.Name,
		NameUz:        in.NameUz,
		NameRu:        in.NameRu,
		Description:   in.Description,
		DescriptionUz: in.DescriptionUz,
		DescriptionRu: in.DescriptionRu,
		Type:          in.Type,
		Level:         in.Level,
		AgeMin:        in.AgeMin,
		AgeMax:        in.AgeMax,
		Config:        in.Config,
		Thumbnail:     in.Thumbnail,
		PointsReward:  models.DefaultGamePoints,
		TimeLimit:     in.TimeLimit,
		IsActive:      true,
	}
	if game.Type == "" {
		game.Type = models.GamePuzzle
	}
	if game.Level == 0 {
		game.Level = models.MinLevel
	}
	if game.AgeMin == 0 {
		game.AgeMin = models.MinAge
	}
	if game.AgeMax == 0 {
		game.AgeMax = models.MaxAge
	}
	if in.PointsReward != nil {
		game.PointsReward = *in.PointsReward
	}

	if err := checkAgeRange(game.AgeMin, game.AgeMax); err != nil {
		return nil, err
	}
	if game.SubjectID != nil {
		if err := s.liveSubject(ctx, *game.SubjectID); err != nil {
			return nil, err
		}
	}
	if err := s.games.Create(ctx, game); err != nil {
		return nil, err
	}
	s.log.Info("Game created", zap.String("game_id", game.ID.String()), zap.String("name", game.Name))
	return game, nil
}

func (s *Service) UpdateGame(ctx context.Context, id uuid.UUID, in GameUpdate) (*models.Game, error) {
	game, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	texts := map[string]*string{
		"name":           in.Name,
		"name_uz":        in.NameUz,
		"name_ru":        in.NameRu,
		"description":    in.Description,
		"description_uz": in.DescriptionUz,
		"description_ru": in.DescriptionRu,
		"thumbnail":      in.Thumbnail,
	}
	for column, value := range texts {
		if value != nil {
			updates[column] = *value
		}
	}
	ints := map[string]*int{
		"level":         in.Level,
		"age_min":       in.AgeMin,
		"age_max":       in.AgeMax,
		"points_reward": in.PointsReward,
		"time_limit":    in.TimeLimit,
	}
	for column, value := range ints {
		if value != nil {
			updates[column] = *value
		}
	}
	if in.Config != nil {
		updates["config"] = in.Config
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.SubjectID != nil {
		if err := s.liveSubject(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
		updates["subject_id"] = *in.SubjectID
	}

	ageMin, ageMax := game.AgeMin, game.AgeMax
	if in.AgeMin != nil {
		ageMin = *in.AgeMin
	}
	if in.AgeMax != nil {
		ageMax = *in.AgeMax
	}
	if err := checkAgeRange(ageMin, ageMax); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.games.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.games.FindByID(ctx, id, repository.Preload("Subject"))
}

// DeleteGame removes the game and its sessions. Student totals already
// folded from those sessions are kept.
func (s *Service) DeleteGame(ctx context.Context, id uuid.UUID) error {
	var removed int64
	err := database.InTx(ctx, s.db, func(ctx context.Context) error {
		result := s.sessions.Conn(ctx).Where("game_id = ?", id).Delete(&models.GameSession{})
		if result.Error != nil {
			return errors.FromGorm(result.Error, s.sessions.Resource())
		}
		removed = result.RowsAffected
		return s.games.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("Game deleted", zap.String("game_id", id.String()), zap.Int64("sessions_removed", removed))
	return nil
}

// Session returns a game session with its game.
func (s *Service) Session(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	return s.sessions.FindByID(ctx, id, repository.Preload("Game"))
}

// SessionsFor lists the student's sessions, newest first.
func (s *Service) SessionsFor(ctx context.Context, studentID uuid.UUID, page database.Pagination) (*database.PaginatedResult, error) {
	return s.sessions.Paginate(ctx, page,
		repository.Where("student_id = ?", studentID),
		repository.Preload("Game"),
		repository.OrderBy("started_at DESC"),
	)
}
