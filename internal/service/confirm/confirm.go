// Package confirm abstracts the yes/no prompt destructive operations require.
package confirm

import "sync"

// Prompts shown before destructive operations.
const (
	DeleteRecordPrompt = "Are you sure you want to delete this record?"
	ClearAllPrompt     = "Are you sure you want to delete ALL records? This action cannot be undone!"
	ClearAllFinal      = "This will permanently delete all sales and expense records. Are you absolutely sure?"
)

// Confirmer asks the user to approve message.
type Confirmer interface {
	Confirm(message string) bool
}

// Func adapts a plain function to Confirmer.
type Func func(message string) bool

// Confirm calls f.
func (f Func) Confirm(message string) bool { return f(message) }

// Always answers every prompt with answer.
func Always(answer bool) Confirmer {
	return Func(func(string) bool { return answer })
}

// Answers replays answers collected up front, one per prompt in order. Browsers submit
// their confirmation checkboxes with the request, so the server consumes them here.
// Prompts beyond the supplied answers are declined.
type Answers struct {
	mu      sync.Mutex
	answers []bool
	asked   []string
}

// NewAnswers returns a Confirmer that replays answers.
func NewAnswers(answers ...bool) *Answers {
	return &Answers{answers: answers}
}

// Confirm implements Confirmer.
func (a *Answers) Confirm(message string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.asked = append(a.asked, message)
	if len(a.answers) == 0 {
		return false
	}
	answer := a.answers[0]
	a.answers = a.answers[1:]
	return answer
}

// Asked lists the prompts seen so far.
func (a *Answers) Asked() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.asked...)
}
