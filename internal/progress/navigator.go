package progress

import (
	"fmt"

	"github.com/vytor/logicbuild/internal/models"
)

// BossSelection is the outcome of picking a boss on the bosses view.
type BossSelection struct {
	Navigated bool   `json:"navigated"`
	Warning   string `json:"warning,omitempty"`
}

// SelectBoss moves to the levels view of bossID. When the preceding boss is not
// completed and the player has not confirmed, the position is left untouched
// and a warning is returned; the player may confirm and proceed anyway.
func SelectBoss(s *models.GameState, bossID int, confirmed bool) (BossSelection, error) {
	boss := s.Boss(bossID)
	if boss == nil {
		return BossSelection{}, fmt.Errorf("%w: %d", ErrUnknownBoss, bossID)
	}
	if bossID > 1 && !confirmed {
		if prev := s.Boss(bossID - 1); prev != nil && !prev.Completed {
			return BossSelection{
				Warning: fmt.Sprintf("%s is not completed yet. Are you sure you want to challenge %s?", prev.Name, boss.Name),
			}, nil
		}
	}
	s.CurrentBossID = models.IntPtr(bossID)
	s.CurrentLevelID = nil
	s.CurrentStageID = nil
	return BossSelection{Navigated: true}, nil
}

// LevelSelection is the outcome of picking a level on the levels view.
type LevelSelection struct {
	View             models.View `json:"view"`
	StageID          *int        `json:"stageId,omitempty"`
	AlreadyCompleted bool        `json:"alreadyCompleted"`
}

// SelectLevel jumps to the first incomplete stage of the level. A fully
// completed level offers no drill-down and the levels view stays active.
func SelectLevel(s *models.GameState, levelID int) (LevelSelection, error) {
	if s.CurrentBossID == nil {
		return LevelSelection{}, ErrNoBossSelected
	}
	boss := s.Boss(*s.CurrentBossID)
	if boss == nil {
		return LevelSelection{}, fmt.Errorf("%w: %d", ErrUnknownBoss, *s.CurrentBossID)
	}
	level := boss.Level(levelID)
	if level == nil {
		return LevelSelection{}, fmt.Errorf("%w: %d/%d", ErrUnknownLevel, boss.ID, levelID)
	}
	next := level.FirstIncompleteStage()
	if next == nil {
		return LevelSelection{View: s.View(), AlreadyCompleted: true}, nil
	}
	s.CurrentLevelID = models.IntPtr(levelID)
	s.CurrentStageID = models.IntPtr(next.ID)
	return LevelSelection{View: models.ViewStage, StageID: models.IntPtr(next.ID)}, nil
}

// Back steps one view up: stage -> levels -> bosses.
func Back(s *models.GameState) models.View {
	switch s.View() {
	case models.ViewStage:
		s.CurrentStageID = nil
	case models.ViewLevels:
		s.CurrentBossID = nil
		s.CurrentLevelID = nil
	}
	return s.View()
}
