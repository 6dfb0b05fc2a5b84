package content

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vytor/logicbuild/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed bank.yaml
var bankYAML []byte

// Topics maps a boss name to the topic taught by each of its levels, in level order.
var Topics = map[string][]string{
	"Logic":      {"Boolean Values", "Logical Operators", "Truth Tables", "Conditional Reasoning"},
	"Patterns":   {"Number Sequences", "Shape Patterns", "Repeating Patterns", "Growing Patterns"},
	"Algorithms": {"Step-by-Step Instructions", "Loops", "Sorting", "Searching"},
	"Debugging":  {"Finding Errors", "Tracing Code", "Testing", "Fixing Bugs"},
}

// TopicFor resolves the topic for a level. ok is false when the table has no entry.
func TopicFor(bossName string, levelID int) (string, bool) {
	topics, found := Topics[bossName]
	if !found || levelID < 1 || levelID > len(topics) {
		return "", false
	}
	return topics[levelID-1], true
}

// Rand is a mutex-guarded math/rand source shared by concurrent quiz builds.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a source seeded with seed. Tests pass a fixed seed.
func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeRand returns a source seeded from the clock.
func NewTimeRand() *Rand {
	return NewRand(time.Now().UnixNano())
}

// Intn returns a number in [0, n).
func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Intn(n)
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (r *Rand) suffix(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[r.r.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// Bank is the hand-authored fallback question pool, keyed by boss name then topic.
type Bank struct {
	pools map[string]map[string][]models.Question
	all   []models.Question
}

// DefaultBank parses the embedded question bank.
func DefaultBank() (*Bank, error) {
	return ParseBank(bankYAML)
}

// ParseBank decodes and checks a YAML question bank.
func ParseBank(data []byte) (*Bank, error) {
	var pools map[string]map[string][]models.Question
	if err := yaml.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	b := &Bank{pools: pools}
	for _, boss := range sortedKeys(pools) {
		for _, topic := range sortedKeys(pools[boss]) {
			for i, q := range pools[boss][topic] {
				if err := checkBankQuestion(q); err != nil {
					return nil, fmt.Errorf("question bank %s/%s #%d: %w", boss, topic, i+1, err)
				}
				b.all = append(b.all, q)
			}
		}
	}
	if len(b.all) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}
	return b, nil
}

func checkBankQuestion(q models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("empty text")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("empty correct answer")
	}
	if q.Type == models.QuestionMultipleChoice {
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				return nil
			}
		}
		return fmt.Errorf("correct answer %q is not an option", q.CorrectAnswer)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size is the number of questions in the bank.
func (b *Bank) Size() int {
	return len(b.all)
}

// Pool returns a copy of the questions for one boss topic.
func (b *Bank) Pool(bossName, topic string) []models.Question {
	return append([]models.Question(nil), b.pools[bossName][topic]...)
}

// typePlan lists the question type for each slot. Final quizzes mix types,
// mini-quizzes are multiple-choice only.
func typePlan(stageType models.StageType) []models.QuestionType {
	switch stageType {
	case models.StageFinalQuiz:
		return []models.QuestionType{
			models.QuestionMultipleChoice,
			models.QuestionMultipleChoice,
			models.QuestionMultipleChoice,
			models.QuestionFillInBlank,
			models.QuestionLogicPuzzle,
		}
	default:
		plan := make([]models.QuestionType, stageType.QuestionCount())
		for i := range plan {
			plan[i] = models.QuestionMultipleChoice
		}
		if len(plan) == 0 {
			plan = []models.QuestionType{models.QuestionMultipleChoice}
		}
		return plan
	}
}

// FallbackQuiz builds a quiz for the stage from the bank. It never returns an
// empty set: when the topic pool runs dry it widens to the whole bank.
func (b *Bank) FallbackQuiz(rng *Rand, bossName string, levelID int, stageType models.StageType, difficulty models.Difficulty) []models.Question {
	var topicPool []models.Question
	if topic, ok := TopicFor(bossName, levelID); ok {
		topicPool = b.pools[bossName][topic]
	}

	used := make(map[string]bool)
	plan := typePlan(stageType)
	out := make([]models.Question, 0, len(plan))
	for i, qt := range plan {
		q, ok := pick(rng, topicPool, used, qt)
		if !ok {
			q, ok = pick(rng, b.all, used, qt)
		}
		if !ok {
			q, ok = pick(rng, b.all, used, "")
		}
		if !ok {
			// Every question has been used already; allow repeats.
			q = b.all[rng.Intn(len(b.all))]
		}
		used[q.Text] = true

		q.ID = fmt.Sprintf("fallback-l%d-q%d-%s", levelID, i+1, rng.suffix(6))
		q.Options = append([]string(nil), q.Options...)
		q.DifficultyLevel = difficulty
		out = append(out, q)
	}
	return out
}

// pick draws a random unused question of type qt from pool. An empty qt matches any type.
func pick(rng *Rand, pool []models.Question, used map[string]bool, qt models.QuestionType) (models.Question, bool) {
	candidates := make([]int, 0, len(pool))
	for i, q := range pool {
		if used[q.Text] {
			continue
		}
		if qt != "" && q.Type != qt {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return models.Question{}, false
	}
	return pool[candidates[rng.Intn(len(candidates))]], true
}
