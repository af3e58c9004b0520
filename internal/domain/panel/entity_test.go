package panel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsPlaceholders(t *testing.T) {
	p, err := New("q", []Profile{
		{Title: "Biostatistician", Specialty: "Statistics"},
		{Title: "  ", Specialty: "Safety"},
		{Name: "Dr. Reg", Specialty: "Regulatory"},
	}, time.Now())
	require.NoError(t, err)
	require.Len(t, p.Experts, Size)

	assert.Equal(t, "Expert 1", p.Experts[0].Name)
	assert.Equal(t, "Biostatistician", p.Experts[0].Title)
	assert.Equal(t, "Expert 2", p.Experts[1].Name)
	assert.Equal(t, "Expert 2", p.Experts[1].Title)
	assert.Equal(t, "Dr. Reg", p.Experts[2].Title)
	for _, e := range p.Experts {
		assert.NotEmpty(t, e.Title)
		assert.NotNil(t, e.Questions)
	}
}

func TestNewRejectsWrongSize(t *testing.T) {
	_, err := New("q", []Profile{{Title: "a"}, {Title: "b"}}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPanelSize))
}

func TestAppendQAKeepsListsAligned(t *testing.T) {
	e := &Expert{}
	n := e.AppendQA([]string{"q1", "q2", "q3"}, []string{"a1", "a2"})
	assert.Equal(t, 2, n)
	assert.Len(t, e.Questions, 2)
	assert.Len(t, e.Answers, 2)
	assert.Len(t, e.QuestionsAndAnswers, 2)

	e.AppendQA([]string{"q4"}, []string{"a4", "extra"})
	assert.Len(t, e.Questions, 3)
	assert.Len(t, e.Answers, 3)
	assert.Equal(t, QA{Question: "q4", Answer: "a4"}, e.QuestionsAndAnswers[2])
}

func TestHasAnswers(t *testing.T) {
	e := &Expert{}
	assert.False(t, e.HasAnswers())
	e.AppendQA([]string{"q"}, []string{"   "})
	assert.False(t, e.HasAnswers())
	e.AppendQA([]string{"q"}, []string{"yes"})
	assert.True(t, e.HasAnswers())
}

func TestAvailableAndMindmapsKeepPanelOrder(t *testing.T) {
	p := &Panel{Experts: []*Expert{
		{Profile: Profile{Title: "a"}, Mindmap: "mindmap\n  root((a))"},
		{Profile: Profile{Title: "b"}},
		{Profile: Profile{Title: "c"}, Mindmap: "mindmap\n  root((c))"},
	}}
	p.Experts[1].MarkUnavailable(errors.New("boom"))

	avail := p.Available()
	require.Len(t, avail, 2)
	assert.Equal(t, "a", avail[0].Title)
	assert.Equal(t, "c", avail[1].Title)

	maps := p.WithMindmaps()
	require.Len(t, maps, 2)
	assert.Equal(t, "c", maps[1].Title)
	assert.Equal(t, "boom", p.Experts[1].Failure)
}

func TestCloneIsDeep(t *testing.T) {
	p, err := New("q", []Profile{{Title: "A"}, {Title: "B"}, {Title: "C"}}, time.Now())
	require.NoError(t, err)
	p.Experts[0].AppendQA([]string{"q1"}, []string{"a1"})

	c := p.Clone()
	c.Experts[0].AppendQA([]string{"q2"}, []string{"a2"})
	c.Experts[1].Summary = "changed"

	assert.Len(t, p.Experts[0].Questions, 1)
	assert.Len(t, c.Experts[0].Questions, 2)
	assert.Empty(t, p.Experts[1].Summary)
	assert.Nil(t, (*Panel)(nil).Clone())
}

func TestWithMindmapsSkipsUnavailableExperts(t *testing.T) {
	p := &Panel{Experts: []*Expert{
		{Profile: Profile{Title: "a"}, Mindmap: "mindmap\n  root((a))"},
		{Profile: Profile{Title: "b"}, Mindmap: "mindmap\n  root((stale))"},
		{Profile: Profile{Title: "c"}},
	}}
	p.Experts[1].MarkUnavailable(errors.New("timeout"))

	maps := p.WithMindmaps()
	require.Len(t, maps, 1)
	assert.Equal(t, "a", maps[0].Title)
}

func TestExpertCloneIsDeep(t *testing.T) {
	e := &Expert{Profile: Profile{Title: "A"}}
	e.AppendQA([]string{"q1"}, []string{"a1"})

	c := e.Clone()
	c.AppendQA([]string{"q2"}, []string{"a2"})
	c.Summary = "new"

	assert.Len(t, e.Questions, 1)
	assert.Len(t, e.QuestionsAndAnswers, 1)
	assert.Empty(t, e.Summary)
	assert.Len(t, c.Answers, 2)
}
