package exam

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/pavelanni/examhall/internal/model"
)

// CorrectThreshold is the keyword match fraction at which a free-text
// answer counts as correct.
const CorrectThreshold = 0.70

// minKeywordRunes drops short tokens such as articles and prepositions.
const minKeywordRunes = 4

// GradedAnswer is the outcome for one question of the bank.
type GradedAnswer struct {
	QuestionID int64
	Answer     string
	Correct    bool
	Points     float64
	// Fraction is the keyword match fraction for free-text kinds,
	// and 1 or 0 for choice kinds.
	Fraction float64
}

// Grading is the scored answer set.
type Grading struct {
	Answers     []GradedAnswer
	RawScore    float64
	TotalPoints int
	Percentage  float64
	// Unknown lists submitted question IDs that are not in the bank.
	Unknown []int64
}

// Grade scores answers against the question bank. Every question in the
// bank yields one GradedAnswer, in bank order; questions without an answer
// score zero. Answers to questions outside the bank are skipped.
// Grade is deterministic and never fails.
func Grade(questions []model.Question, answers []model.AnswerInput) Grading {
	given := make(map[int64]string, len(answers))
	for _, a := range answers {
		given[a.QuestionID] = a.Answer
	}
	inBank := lo.SliceToMap(questions, func(q model.Question) (int64, struct{}) {
		return q.ID, struct{}{}
	})

	var g Grading
	for _, q := range questions {
		answer := given[q.ID]
		ga := gradeOne(q, answer)
		g.Answers = append(g.Answers, ga)
		g.RawScore += ga.Points
		g.TotalPoints += q.Points
	}
	for _, a := range answers {
		if _, ok := inBank[a.QuestionID]; !ok {
			g.Unknown = append(g.Unknown, a.QuestionID)
		}
	}
	g.Percentage = Percentage(g.RawScore, g.TotalPoints)
	return g
}

func gradeOne(q model.Question, answer string) GradedAnswer {
	ga := GradedAnswer{QuestionID: q.ID, Answer: answer}
	if q.Kind.IsChoice() {
		if answer != "" && answer == q.CorrectAnswer {
			ga.Correct = true
			ga.Fraction = 1
			ga.Points = float64(q.Points)
		}
		return ga
	}
	ga.Fraction = MatchFraction(q.CorrectAnswer, answer)
	ga.Points = math.Round(float64(q.Points) * ga.Fraction)
	ga.Correct = ga.Fraction >= CorrectThreshold
	return ga
}

// Keywords returns the lower-cased tokens of a canonical answer that are
// long enough to count.
func Keywords(canonical string) []string {
	return lo.Filter(strings.Fields(strings.ToLower(canonical)), func(tok string, _ int) bool {
		return utf8.RuneCountInString(tok) >= minKeywordRunes
	})
}

// MatchFraction is the share of the canonical answer's keywords found as
// substrings of the given answer, ignoring case. A canonical answer
// without keywords matches nothing.
func MatchFraction(canonical, answer string) float64 {
	keywords := Keywords(canonical)
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(answer)
	matched := lo.CountBy(keywords, func(k string) bool {
		return strings.Contains(lower, k)
	})
	return float64(matched) / float64(len(keywords))
}

// Percentage is score/total*100 rounded to two decimals, or 0 when total is 0.
func Percentage(score float64, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(score / float64(total) * 100)
}

// Status decides pass or fail against the exam's passing percentage.
func Status(e model.Exam, percentage float64) model.ResultStatus {
	if percentage >= e.PassingPercentage() {
		return model.ResultPassed
	}
	return model.ResultFailed
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
