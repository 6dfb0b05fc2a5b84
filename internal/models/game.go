package models

// Difficulty is the tier the whole game is played at.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// AvatarState is cosmetic and follows the most recent completion event.
type AvatarState string

const (
	AvatarNeutral AvatarState = "neutral"
	AvatarHappy   AvatarState = "happy"
	AvatarExcited AvatarState = "excited"
)

// StageType is fixed by the stage's position inside its level.
type StageType string

const (
	StageLesson    StageType = "lesson"
	StageMiniQuiz  StageType = "miniQuiz"
	StageFinalQuiz StageType = "finalQuiz"
)

// XPReward is the experience awarded once when a stage of this type is completed.
func (t StageType) XPReward() int {
	switch t {
	case StageLesson:
		return 10
	case StageMiniQuiz:
		return 20
	case StageFinalQuiz:
		return 50
	}
	return 0
}

// QuestionCount is how many questions a quiz stage of this type asks. Lessons ask none.
func (t StageType) QuestionCount() int {
	switch t {
	case StageMiniQuiz:
		return 3
	case StageFinalQuiz:
		return 5
	}
	return 0
}

// IsQuiz reports whether the stage is graded.
func (t StageType) IsQuiz() bool {
	return t == StageMiniQuiz || t == StageFinalQuiz
}

// View is the navigation screen derived from the current position.
type View string

const (
	ViewBosses View = "bosses"
	ViewLevels View = "levels"
	ViewStage  View = "stage"
)

type Stage struct {
	ID        int       `json:"id"`
	Type      StageType `json:"type"`
	Completed bool      `json:"completed"`
	XPReward  int       `json:"xpReward"`
}

type Level struct {
	ID        int     `json:"id"`
	Completed bool    `json:"completed"`
	Stars     int     `json:"stars"`
	Stages    []Stage `json:"stages"`
}

type Boss struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Completed bool    `json:"completed"`
	Levels    []Level `json:"levels"`
}

// GameState is the whole progress tree for one player.
type GameState struct {
	DifficultyLevel Difficulty  `json:"difficultyLevel"`
	TotalXP         int         `json:"totalXP"`
	Bosses          []Boss      `json:"bosses"`
	CurrentBossID   *int        `json:"currentBossId"`
	CurrentLevelID  *int        `json:"currentLevelId"`
	CurrentStageID  *int        `json:"currentStageId"`
	AvatarState     AvatarState `json:"avatarState"`
	Badges          []string    `json:"badges"`
}

// View derives the active screen from the navigation ids.
func (g *GameState) View() View {
	switch {
	case g.CurrentBossID == nil:
		return ViewBosses
	case g.CurrentStageID == nil:
		return ViewLevels
	default:
		return ViewStage
	}
}

// Boss returns the boss with the given id, or nil.
func (g *GameState) Boss(id int) *Boss {
	for i := range g.Bosses {
		if g.Bosses[i].ID == id {
			return &g.Bosses[i]
		}
	}
	return nil
}

// Level returns the level inside the boss, or nil.
func (b *Boss) Level(id int) *Level {
	for i := range b.Levels {
		if b.Levels[i].ID == id {
			return &b.Levels[i]
		}
	}
	return nil
}

// Stage returns the stage inside the level, or nil.
func (l *Level) Stage(id int) *Stage {
	for i := range l.Stages {
		if l.Stages[i].ID == id {
			return &l.Stages[i]
		}
	}
	return nil
}

// FirstIncompleteStage returns the lowest-id stage not yet completed, or nil.
func (l *Level) FirstIncompleteStage() *Stage {
	var first *Stage
	for i := range l.Stages {
		s := &l.Stages[i]
		if s.Completed {
			continue
		}
		if first == nil || s.ID < first.ID {
			first = s
		}
	}
	return first
}

// AllBossesCompleted reports whether the whole game has been finished.
func (g *GameState) AllBossesCompleted() bool {
	if len(g.Bosses) == 0 {
		return false
	}
	for _, b := range g.Bosses {
		if !b.Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy that shares no slices or pointers with g.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	out := *g
	out.CurrentBossID = cloneInt(g.CurrentBossID)
	out.CurrentLevelID = cloneInt(g.CurrentLevelID)
	out.CurrentStageID = cloneInt(g.CurrentStageID)
	out.Badges = append([]string{}, g.Badges...)
	out.Bosses = make([]Boss, len(g.Bosses))
	for i, b := range g.Bosses {
		nb := b
		nb.Levels = make([]Level, len(b.Levels))
		for j, l := range b.Levels {
			nl := l
			nl.Stages = append([]Stage{}, l.Stages...)
			nb.Levels[j] = nl
		}
		out.Bosses[i] = nb
	}
	return &out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr is a small helper for the nullable navigation ids.
func IntPtr(v int) *int { return &v }
