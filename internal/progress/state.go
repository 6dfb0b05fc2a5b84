// Package progress holds the LogicBuild progress rules: the fixed
// boss/level/stage topology, the completion cascade and scoring, and the
// navigation state machine. Everything here is pure and mutates the
// *models.GameState it is handed; persistence and I/O live elsewhere.
package progress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vytor/logicbuild/internal/models"
)

const (
	LevelsPerBoss  = 4
	StagesPerLevel = 4
)

// BossNames fixes the order and cardinality of bosses.
var BossNames = []string{"Logic", "Patterns", "Algorithms", "Debugging"}

// StageTypeFor returns the type dictated by a stage's position.
func StageTypeFor(stageID int) models.StageType {
	switch {
	case stageID <= 1:
		return models.StageLesson
	case stageID >= StagesPerLevel:
		return models.StageFinalQuiz
	default:
		return models.StageMiniQuiz
	}
}

// NewGameState builds the initial 4x4x4 topology at the given difficulty.
func NewGameState(difficulty models.Difficulty) *models.GameState {
	if !difficulty.Valid() {
		difficulty = models.DifficultyBeginner
	}
	state := &models.GameState{
		DifficultyLevel: difficulty,
		AvatarState:     models.AvatarNeutral,
		Badges:          []string{},
		Bosses:          make([]models.Boss, 0, len(BossNames)),
	}
	for i, name := range BossNames {
		boss := models.Boss{ID: i + 1, Name: name, Levels: make([]models.Level, 0, LevelsPerBoss)}
		for l := 1; l <= LevelsPerBoss; l++ {
			level := models.Level{ID: l, Stages: make([]models.Stage, 0, StagesPerLevel)}
			for s := 1; s <= StagesPerLevel; s++ {
				t := StageTypeFor(s)
				level.Stages = append(level.Stages, models.Stage{ID: s, Type: t, XPReward: t.XPReward()})
			}
			boss.Levels = append(boss.Levels, level)
		}
		state.Bosses = append(state.Bosses, boss)
	}
	return state
}

// ErrInvalidState is wrapped by Validate.
var ErrInvalidState = errors.New("invalid game state")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Validate checks that a (typically deserialized) state has the fixed topology
// and that its completion flags and navigation ids are consistent.
func Validate(s *models.GameState) error {
	if s == nil {
		return invalid("nil state")
	}
	if !s.DifficultyLevel.Valid() {
		return invalid("unknown difficulty %q", s.DifficultyLevel)
	}
	if s.TotalXP < 0 {
		return invalid("negative totalXP %d", s.TotalXP)
	}
	switch s.AvatarState {
	case models.AvatarNeutral, models.AvatarHappy, models.AvatarExcited:
	default:
		return invalid("unknown avatar state %q", s.AvatarState)
	}
	if len(s.Bosses) != len(BossNames) {
		return invalid("expected %d bosses, got %d", len(BossNames), len(s.Bosses))
	}
	for bi, boss := range s.Bosses {
		if boss.ID != bi+1 || boss.Name != BossNames[bi] {
			return invalid("boss %d is %d/%q", bi+1, boss.ID, boss.Name)
		}
		if len(boss.Levels) != LevelsPerBoss {
			return invalid("boss %d has %d levels", boss.ID, len(boss.Levels))
		}
		allLevels := true
		for li, level := range boss.Levels {
			if level.ID != li+1 {
				return invalid("boss %d level %d has id %d", boss.ID, li+1, level.ID)
			}
			if level.Stars < 0 || level.Stars > 3 {
				return invalid("boss %d level %d has %d stars", boss.ID, level.ID, level.Stars)
			}
			if len(level.Stages) != StagesPerLevel {
				return invalid("boss %d level %d has %d stages", boss.ID, level.ID, len(level.Stages))
			}
			allStages := true
			for si, stage := range level.Stages {
				want := StageTypeFor(si + 1)
				if stage.ID != si+1 || stage.Type != want || stage.XPReward != want.XPReward() {
					return invalid("boss %d level %d stage %d is malformed", boss.ID, level.ID, si+1)
				}
				allStages = allStages && stage.Completed
			}
			if level.Completed && !allStages {
				return invalid("boss %d level %d completed with open stages", boss.ID, level.ID)
			}
			if level.Completed != (level.Stars > 0) {
				return invalid("boss %d level %d stars do not match completion", boss.ID, level.ID)
			}
			allLevels = allLevels && level.Completed
		}
		if boss.Completed && !allLevels {
			return invalid("boss %d completed with open levels", boss.ID)
		}
	}
	return validatePosition(s)
}

func validatePosition(s *models.GameState) error {
	if s.CurrentBossID == nil {
		if s.CurrentLevelID != nil || s.CurrentStageID != nil {
			return invalid("level or stage selected without a boss")
		}
		return nil
	}
	boss := s.Boss(*s.CurrentBossID)
	if boss == nil {
		return invalid("current boss %d does not exist", *s.CurrentBossID)
	}
	if s.CurrentLevelID == nil {
		if s.CurrentStageID != nil {
			return invalid("stage selected without a level")
		}
		return nil
	}
	level := boss.Level(*s.CurrentLevelID)
	if level == nil {
		return invalid("current level %d does not exist", *s.CurrentLevelID)
	}
	if s.CurrentStageID != nil && level.Stage(*s.CurrentStageID) == nil {
		return invalid("current stage %d does not exist", *s.CurrentStageID)
	}
	return nil
}

// NextDifficulty escalates one tier, capping at advanced.
func NextDifficulty(d models.Difficulty) models.Difficulty {
	switch d {
	case models.DifficultyBeginner:
		return models.DifficultyIntermediate
	case models.DifficultyIntermediate:
		return models.DifficultyAdvanced
	default:
		return models.DifficultyAdvanced
	}
}

// Restart answers the whole-game-complete event. With advance set, the new
// game is played one tier harder and carries a single "<Tier> Completed" badge.
func Restart(s *models.GameState, advance bool) *models.GameState {
	if !advance {
		return NewGameState(s.DifficultyLevel)
	}
	next := NewGameState(NextDifficulty(s.DifficultyLevel))
	next.Badges = append(next.Badges, DifficultyBadge(s.DifficultyLevel))
	return next
}

// MasterBadge is awarded when every level of a boss is complete.
func MasterBadge(bossName string) string {
	return bossName + " Master"
}

// DifficultyBadge is awarded when a whole game is finished at a tier.
func DifficultyBadge(d models.Difficulty) string {
	name := string(d)
	if name == "" {
		return "Completed"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " Completed"
}
