package panel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Size jumlah expert dalam satu panel.
const Size = 3

// ErrPanelSize is returned when panel formation does not yield exactly Size experts.
var ErrPanelSize = errors.New("panel must have exactly 3 experts")

// Profile is what panel formation returns for each expert.
type Profile struct {
	Name       string `json:"name,omitempty"`
	Title      string `json:"title"`
	Specialty  string `json:"specialty"`
	Background string `json:"background"`
}

// QA value object
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Expert is a panel member and its accumulated discussion history.
// Questions, Answers and QuestionsAndAnswers always have the same length.
type Expert struct {
	Profile
	Questions           []string `json:"questions"`
	Answers             []string `json:"answers"`
	QuestionsAndAnswers []QA     `json:"questions_and_answers"`
	Summary             string   `json:"summary"`
	Mindmap             string   `json:"mindmap,omitempty"`

	// Unavailable is set when this expert failed during the latest turn.
	Unavailable bool   `json:"unavailable,omitempty"`
	Failure     string `json:"failure,omitempty"`
}

// AppendQA pairs questions and answers index-wise and appends the pairs.
// Unpaired trailing entries are dropped. Returns the number of pairs added.
func (e *Expert) AppendQA(questions, answers []string) int {
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	for i := 0; i < n; i++ {
		e.Questions = append(e.Questions, questions[i])
		e.Answers = append(e.Answers, answers[i])
		e.QuestionsAndAnswers = append(e.QuestionsAndAnswers, QA{Question: questions[i], Answer: answers[i]})
	}
	return n
}

// HasAnswers reports whether the expert has at least one non-blank answer.
func (e *Expert) HasAnswers() bool {
	for _, a := range e.Answers {
		if strings.TrimSpace(a) != "" {
			return true
		}
	}
	return false
}

func (e *Expert) HasMindmap() bool { return e.Mindmap != "" }

// MarkUnavailable records a per-expert failure without touching its history.
func (e *Expert) MarkUnavailable(err error) {
	e.Unavailable = true
	e.Failure = err.Error()
}

// Clone returns a deep copy of the expert.
func (e *Expert) Clone() *Expert {
	c := *e
	c.Questions = append([]string{}, e.Questions...)
	c.Answers = append([]string{}, e.Answers...)
	c.QuestionsAndAnswers = append([]QA{}, e.QuestionsAndAnswers...)
	return &c
}

func (e *Expert) ClearFailure() {
	e.Unavailable = false
	e.Failure = ""
}

// Aggregate Root: Panel
type Panel struct {
	Question  string    `json:"question"`
	Experts   []*Expert `json:"experts"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds a panel from exactly Size profiles. Missing names get the
// placeholder "Expert N" (1-indexed) and missing titles fall back to the name.
func New(question string, profiles []Profile, now time.Time) (*Panel, error) {
	if len(profiles) != Size {
		return nil, fmt.Errorf("%w: got %d", ErrPanelSize, len(profiles))
	}
	p := &Panel{Question: question, CreatedAt: now}
	for i, prof := range profiles {
		prof.Name = strings.TrimSpace(prof.Name)
		prof.Title = strings.TrimSpace(prof.Title)
		if prof.Name == "" {
			prof.Name = fmt.Sprintf("Expert %d", i+1)
		}
		if prof.Title == "" {
			prof.Title = prof.Name
		}
		p.Experts = append(p.Experts, &Expert{
			Profile:             prof,
			Questions:           []string{},
			Answers:             []string{},
			QuestionsAndAnswers: []QA{},
		})
	}
	return p, nil
}

// Available returns the experts that did not fail in the latest turn, in panel order.
func (p *Panel) Available() []*Expert {
	out := make([]*Expert, 0, len(p.Experts))
	for _, e := range p.Experts {
		if !e.Unavailable {
			out = append(out, e)
		}
	}
	return out
}

// WithMindmaps returns available experts whose mindmap passed validation,
// in panel order.
func (p *Panel) WithMindmaps() []*Expert {
	out := make([]*Expert, 0, len(p.Experts))
	for _, e := range p.Experts {
		if e.HasMindmap() && !e.Unavailable {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy; a turn works on the copy and commits it only
// when it completes.
func (p *Panel) Clone() *Panel {
	if p == nil {
		return nil
	}
	out := &Panel{Question: p.Question, CreatedAt: p.CreatedAt}
	for _, e := range p.Experts {
		out.Experts = append(out.Experts, e.Clone())
	}
	return out
}
