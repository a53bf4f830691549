package domain

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// QuestionType tags the answer-key shape carried by a question.
type QuestionType string

const (
	QuestionABCD   QuestionType = "ABCD"
	QuestionRange  QuestionType = "RANGE"
	QuestionVoting QuestionType = "VOTING"
	QuestionSlide  QuestionType = "SLIDE"
	QuestionText   QuestionType = "TEXT"
	QuestionOrder  QuestionType = "ORDER"
	QuestionCheck  QuestionType = "CHECK"
)

// Choice is a selectable option for ABCD and CHECK questions.
// Right is part of the answer key and must never be sent to players.
type Choice struct {
	Right  bool   `json:"right"`
	Answer string `json:"answer"`
	Color  string `json:"color,omitempty"`
}

// RangeKey bounds a RANGE question. Min/Max define the slider the player
// sees, MinCorrect/MaxCorrect the interval counted as correct.
type RangeKey struct {
	Min        int `json:"min"`
	Max        int `json:"max"`
	MinCorrect int `json:"min_correct"`
	MaxCorrect int `json:"max_correct"`
}

// TextKey is one accepted answer for a TEXT question.
type TextKey struct {
	Answer        string `json:"answer"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// VoteChoice is an entry for VOTING and ORDER questions. For ORDER the
// slice on the question holds the canonical (correct) sequence.
type VoteChoice struct {
	Answer string `json:"answer"`
	Image  string `json:"image,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Question is a tagged variant: exactly one key field is populated,
// matching Type. The shape is validated upstream at authoring time.
type Question struct {
	Prompt  string       `json:"question"`
	Time    int          `json:"time"` // seconds
	Type    QuestionType `json:"type"`
	Image   string       `json:"image,omitempty"`
	Choices []Choice     `json:"choices,omitempty"` // ABCD, CHECK
	Range   *RangeKey    `json:"range,omitempty"`   // RANGE
	Texts   []TextKey    `json:"texts,omitempty"`   // TEXT
	Items   []VoteChoice `json:"items,omitempty"`   // VOTING, ORDER
	Slide   string       `json:"slide,omitempty"`   // SLIDE content
}

// TimeLimitMs returns the question time limit in milliseconds.
func (q Question) TimeLimitMs() float64 {
	return float64(q.Time) * 1000
}

// Quiz is the immutable content snapshot a game session plays through.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CoverImage      string     `json:"cover_image,omitempty"`
	BackgroundColor string     `json:"background_color,omitempty"`
	CustomField     string     `json:"custom_field,omitempty"`
	Questions       []Question `json:"questions"`
}

// Clone deep-copies a quiz so a session snapshot cannot be reached through
// slices shared with the loader's copy.
func (q Quiz) Clone() Quiz {
	clone := q
	clone.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		copied := question
		copied.Choices = append([]Choice(nil), question.Choices...)
		copied.Texts = append([]TextKey(nil), question.Texts...)
		copied.Items = append([]VoteChoice(nil), question.Items...)
		if question.Range != nil {
			r := *question.Range
			copied.Range = &r
		}
		clone.Questions[i] = copied
	}
	return clone
}

// AnswerPayload is a raw player answer. Which field is meaningful depends
// on the question type: Answer for ABCD/TEXT, Answers for CHECK (a set)
// and ORDER (a sequence), Value for RANGE.
type AnswerPayload struct {
	Answer  string   `json:"answer,omitempty"`
	Answers []string `json:"answers,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// String renders the payload for the answer ledger and persisted results.
func (p AnswerPayload) String() string {
	if p.Value != nil {
		return strconv.FormatFloat(*p.Value, 'f', -1, 64)
	}
	if len(p.Answers) > 0 {
		return strings.Join(p.Answers, ", ")
	}
	return p.Answer
}

// AnswerData is one accepted submission: correctness and score are derived
// eagerly when the answer is recorded.
type AnswerData struct {
	Username      string  `json:"username"`
	QuestionIndex int     `json:"questionIndex"`
	Answer        string  `json:"answer"`
	Right         bool    `json:"right"`
	TimeTakenMs   float64 `json:"timeTaken"`
	Score         int     `json:"score"`
}

// GameResults is the persisted aggregate written once when a game
// finishes. Title, description and questions are denormalized so results
// stay readable after the source quiz changes or disappears.
type GameResults struct {
	ID              string            `json:"id"`
	QuizID          string            `json:"quizId"`
	HostID          string            `json:"hostId"`
	Timestamp       time.Time         `json:"timestamp"`
	PlayerCount     int               `json:"playerCount"`
	Answers         []AnswerData      `json:"answers"`
	PlayerScores    map[string]int    `json:"playerScores"`
	CustomFieldData map[string]string `json:"customFieldData,omitempty"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Questions       []Question        `json:"questions"`
}

// GameSummary is the podium view broadcast with the game-finished event.
type GameSummary struct {
	ResultID     string         `json:"resultId"`
	PlayerCount  int            `json:"playerCount"`
	PlayerScores map[string]int `json:"playerScores"`
}

// QuestionView is the player-facing rendering of a question: prompt and
// options only, with every answer-key field stripped.
type QuestionView struct {
	Index   int          `json:"index"`
	Prompt  string       `json:"question"`
	Time    int          `json:"time"`
	Type    QuestionType `json:"type"`
	Image   string       `json:"image,omitempty"`
	Options []string     `json:"options,omitempty"`
	Min     *int         `json:"min,omitempty"`
	Max     *int         `json:"max,omitempty"`
	Slide   string       `json:"slide,omitempty"`
}

// View strips the answer key from a question for broadcast.
func (q Question) View(index int) QuestionView {
	view := QuestionView{
		Index:  index,
		Prompt: q.Prompt,
		Time:   q.Time,
		Type:   q.Type,
		Image:  q.Image,
		Slide:  q.Slide,
	}
	switch q.Type {
	case QuestionABCD, QuestionCheck:
		for _, c := range q.Choices {
			view.Options = append(view.Options, c.Answer)
		}
	case QuestionVoting:
		for _, item := range q.Items {
			view.Options = append(view.Options, item.Answer)
		}
	case QuestionOrder:
		// The canonical sequence is the answer key, so the options are
		// shuffled before they reach players.
		for _, item := range q.Items {
			view.Options = append(view.Options, item.Answer)
		}
		rand.Shuffle(len(view.Options), func(i, j int) {
			view.Options[i], view.Options[j] = view.Options[j], view.Options[i]
		})
	case QuestionRange:
		if q.Range != nil {
			minBound, maxBound := q.Range.Min, q.Range.Max
			view.Min = &minBound
			view.Max = &maxBound
		}
	}
	return view
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

// Leaderboard captures the ordered scoreboard for a game session.
type Leaderboard struct {
	GameID    string             `json:"gameId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
