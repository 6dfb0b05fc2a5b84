package progress

import (
	"errors"
	"fmt"

	"github.com/vytor/logicbuild/internal/models"
)

var (
	ErrUnknownBoss    = errors.New("unknown boss")
	ErrUnknownLevel   = errors.New("unknown level")
	ErrUnknownStage   = errors.New("unknown stage")
	ErrStageLocked    = errors.New("earlier stages in this level are not completed")
	ErrNoBossSelected = errors.New("no boss selected")
)

// StarsForRatio maps a quiz score ratio to a 1-3 star rating.
func StarsForRatio(ratio float64) int {
	switch {
	case ratio >= 0.9:
		return 3
	case ratio >= 0.7:
		return 2
	default:
		return 1
	}
}

// StarsForScore is StarsForRatio over correct/total. An empty quiz earns one star.
func StarsForScore(correct, total int) int {
	if total <= 0 {
		return 1
	}
	return StarsForRatio(float64(correct) / float64(total))
}

// Completion describes what a CompleteStage call changed.
type Completion struct {
	Applied        bool             `json:"applied"`
	StageType      models.StageType `json:"stageType"`
	XPAwarded      int              `json:"xpAwarded"`
	NextStageID    *int             `json:"nextStageId,omitempty"`
	LevelCompleted bool             `json:"levelCompleted"`
	Stars          int              `json:"stars,omitempty"`
	BossCompleted  bool             `json:"bossCompleted"`
	Badge          string           `json:"badge,omitempty"`
	GameCompleted  bool             `json:"gameCompleted"`
}

func locate(s *models.GameState, bossID, levelID, stageID int) (*models.Boss, *models.Level, *models.Stage, error) {
	boss := s.Boss(bossID)
	if boss == nil {
		return nil, nil, nil, fmt.Errorf("%w: %d", ErrUnknownBoss, bossID)
	}
	level := boss.Level(levelID)
	if level == nil {
		return nil, nil, nil, fmt.Errorf("%w: %d/%d", ErrUnknownLevel, bossID, levelID)
	}
	stage := level.Stage(stageID)
	if stage == nil {
		return nil, nil, nil, fmt.Errorf("%w: %d/%d/%d", ErrUnknownStage, bossID, levelID, stageID)
	}
	return boss, level, stage, nil
}

// CompleteStage marks a stage completed and cascades upward. earnedStars is
// only used for a finalQuiz stage and is clamped to 1..3.
//
// Completing an already-completed stage is a no-op (Applied=false). A stage
// can only be completed once every earlier stage in its level is, which keeps
// "level completed implies all stages completed" true.
func CompleteStage(s *models.GameState, bossID, levelID, stageID, earnedStars int) (Completion, error) {
	boss, level, stage, err := locate(s, bossID, levelID, stageID)
	if err != nil {
		return Completion{}, err
	}
	result := Completion{StageType: stage.Type}
	if stage.Completed {
		return result, nil
	}
	for _, prior := range level.Stages {
		if prior.ID < stage.ID && !prior.Completed {
			return Completion{}, fmt.Errorf("%w: stage %d", ErrStageLocked, prior.ID)
		}
	}

	stage.Completed = true
	s.TotalXP += stage.XPReward
	s.AvatarState = models.AvatarHappy
	result.Applied = true
	result.XPAwarded = stage.XPReward

	if stage.Type != models.StageFinalQuiz {
		if next := level.FirstIncompleteStage(); next != nil {
			result.NextStageID = models.IntPtr(next.ID)
			s.CurrentStageID = models.IntPtr(next.ID)
		}
		return result, nil
	}

	level.Completed = true
	level.Stars = clampStars(earnedStars)
	result.LevelCompleted = true
	result.Stars = level.Stars
	s.CurrentStageID = nil

	if !boss.Completed && allLevelsCompleted(boss) {
		boss.Completed = true
		result.BossCompleted = true
		result.Badge = MasterBadge(boss.Name)
		s.Badges = append(s.Badges, result.Badge)
		s.AvatarState = models.AvatarExcited
	}
	result.GameCompleted = s.AllBossesCompleted()
	return result, nil
}

func clampStars(stars int) int {
	if stars < 1 {
		return 1
	}
	if stars > 3 {
		return 3
	}
	return stars
}

func allLevelsCompleted(b *models.Boss) bool {
	for _, l := range b.Levels {
		if !l.Completed {
			return false
		}
	}
	return true
}

// EarnedXP recomputes the XP implied by completed stages. The engine never
// overwrites TotalXP with it; it exists for audits and tests.
func EarnedXP(s *models.GameState) int {
	total := 0
	for _, b := range s.Bosses {
		for _, l := range b.Levels {
			for _, st := range l.Stages {
				if st.Completed {
					total += st.XPReward
				}
			}
		}
	}
	return total
}
