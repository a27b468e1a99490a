package service

import (
	"context"

	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

// HasUserVoted reports whether address, or the sender when empty, was in
// the question's voter set at read time. The answer is advisory: the ledger
// alone rejects a second vote, and a vote may land right after the read.
func (s *Service) HasUserVoted(ctx context.Context, formID string, questionIndex int, address string) (bool, error) {
	if address == "" {
		address = s.gateway.Sender()
	}
	if address == "" {
		return false, nil
	}
	form, found, err := s.GetForm(ctx, formID)
	if err != nil || !found {
		return false, err
	}
	q, ok := form.Question(questionIndex)
	if !ok {
		return false, nil
	}
	return q.HasVoted(address), nil
}

// GetQuestionResults tallies one question. It reports false when the form
// or question does not exist.
func (s *Service) GetQuestionResults(ctx context.Context, formID string, questionIndex int) (domain.QuestionResults, bool, error) {
	form, found, err := s.GetForm(ctx, formID)
	if err != nil || !found {
		return domain.QuestionResults{}, false, err
	}
	results, ok := domain.ResultsFor(form, questionIndex)
	return results, ok, nil
}

// GetFormResults tallies every question of a form.
func (s *Service) GetFormResults(ctx context.Context, formID string) (domain.FormResults, bool, error) {
	form, found, err := s.GetForm(ctx, formID)
	if err != nil || !found {
		return domain.FormResults{}, false, err
	}
	out := domain.FormResults{FormID: form.ID, Questions: make([]domain.QuestionResults, 0, len(form.Questions))}
	for i := range form.Questions {
		results, _ := domain.ResultsFor(form, i)
		out.Questions = append(out.Questions, results)
	}
	return out, true, nil
}
