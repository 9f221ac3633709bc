package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/nightfix/internal/models"
)

func TestFilterActionable(t *testing.T) {
	issues := []models.Issue{
		{Number: 1, Title: "crash on empty input", Labels: []string{"bug"}},
		{Number: 2, Title: "how do I configure this?", Labels: []string{"Question"}},
		{Number: 3, Title: "typo in docs", Labels: []string{"documentation"}},
		{Number: 4, Title: "no labels at all"},
	}

	out := FilterActionable(issues)
	var numbers []int
	for _, i := range out {
		numbers = append(numbers, i.Number)
	}
	assert.Equal(t, []int{1, 4}, numbers)
}

func TestPrioritizeOrdersByScore(t *testing.T) {
	long := "This reproduces every time and includes a stack trace showing the failure."
	issues := []models.Issue{
		{Number: 1, Title: "add dark mode", Body: long, Labels: []string{"enhancement"}},
		{Number: 2, Title: "TypeError on login", Body: long, Labels: []string{"bug"}},
		{Number: 3, Title: "SQL injection in search", Body: long, Labels: []string{"bug", "security"}},
	}

	out := Prioritize(issues, 0)
	assert.Equal(t, 3, out[0].Number)
	assert.Equal(t, 2, out[1].Number)
	assert.Equal(t, 1, out[2].Number)
}

func TestPrioritizeLimit(t *testing.T) {
	issues := []models.Issue{{Number: 1}, {Number: 2}, {Number: 3}}
	assert.Len(t, Prioritize(issues, 2), 2)
	assert.Len(t, Prioritize(issues, 0), 3)
	assert.Nil(t, Prioritize(nil, 5))
}

func TestScoreIssue(t *testing.T) {
	long := "A detailed description with steps to reproduce and expected behavior text."

	bug := scoreIssue(models.Issue{Title: "crash", Body: long, Labels: []string{"bug"}})
	plain := scoreIssue(models.Issue{Title: "something", Body: long})
	assert.Greater(t, bug, plain)

	// Keywords counted once.
	kw := scoreIssue(models.Issue{Title: "undefined crash typeerror", Body: long})
	assert.InDelta(t, 0.5, kw-plain, 0.001)

	// Vague bodies penalized, never below zero.
	vague := scoreIssue(models.Issue{Title: "hm", Body: "?"})
	assert.GreaterOrEqual(t, vague, 0.0)
}
