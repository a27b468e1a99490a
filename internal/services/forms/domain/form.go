// Package domain defines the forms data model as materialized from ledger
// objects.
package domain

import "github.com/louisbranch/formledger/internal/ledger"

// Form is a multi-question poll owned by its author.
type Form struct {
	ID          string
	Title       string
	Description string
	Author      string
	Questions   []Question
	// IsActive is the public visibility flag; false until listed.
	IsActive bool
}

// Question returns the question at index.
func (f Form) Question(index int) (Question, bool) {
	if index < 0 || index >= len(f.Questions) {
		return Question{}, false
	}
	return f.Questions[index], true
}

// Question is a single-choice question. Votes is parallel to Options.
type Question struct {
	ID          string
	Title       string
	Description string
	Options     []string
	Votes       []uint64
	// Voters holds the addresses that have voted, as of the last fetch.
	Voters []string
}

// TotalVotes sums the vote counts.
func (q Question) TotalVotes() uint64 {
	var total uint64
	for _, v := range q.Votes {
		total += v
	}
	return total
}

// HasVoted reports whether address was in the voter set when the question
// was fetched. It is a hint for display only: the ledger is what rejects a
// second vote, and another vote may land between the fetch and the check.
func (q Question) HasVoted(address string) bool {
	for _, voter := range q.Voters {
		if ledger.SameID(voter, address) {
			return true
		}
	}
	return false
}

// Registry is the ledger's list of form ids in insertion order.
type Registry struct {
	ID      string
	FormIDs []string
	Counter uint64
}

// RegistryStats summarizes the forms reachable from the registry.
type RegistryStats struct {
	TotalForms     int
	ActiveForms    int
	InactiveForms  int
	TotalQuestions int
}

// QuestionResults is the tally of one question.
type QuestionResults struct {
	Index       int
	Title       string
	Description string
	Options     []string
	Votes       []uint64
	TotalVotes  uint64
}

// FormResults is the tally of every question in a form.
type FormResults struct {
	FormID    string
	Questions []QuestionResults
}

// ResultsFor tallies question index of f.
func ResultsFor(f Form, index int) (QuestionResults, bool) {
	q, ok := f.Question(index)
	if !ok {
		return QuestionResults{}, false
	}
	return QuestionResults{
		Index:       index,
		Title:       q.Title,
		Description: q.Description,
		Options:     append([]string(nil), q.Options...),
		Votes:       append([]uint64(nil), q.Votes...),
		TotalVotes:  q.TotalVotes(),
	}, true
}
