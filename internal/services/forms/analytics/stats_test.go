package analytics

import (
	"testing"

	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

func TestCalculateVotingStats(t *testing.T) {
	q := domain.Question{Options: []string{"a", "b", "c"}, Votes: []uint64{3, 1, 0}}
	got := CalculateVotingStats(q)
	if got.TotalVotes != 4 {
		t.Fatalf("TotalVotes = %d, want 4", got.TotalVotes)
	}
	want := []float64{75, 25, 0}
	for i := range want {
		if got.Percentages[i] != want[i] {
			t.Fatalf("Percentages = %v, want %v", got.Percentages, want)
		}
	}
	if got.Winner == nil || got.Winner.Index != 0 || got.Winner.Option != "a" || got.Winner.Percentage != 75 {
		t.Fatalf("Winner = %+v", got.Winner)
	}

	again := CalculateVotingStats(q)
	if again.TotalVotes != got.TotalVotes || again.Winner.Index != got.Winner.Index {
		t.Fatal("expected repeated calls to agree")
	}
	if q.Votes[0] != 3 {
		t.Fatal("input mutated")
	}
}

func TestCalculateVotingStatsNoVotes(t *testing.T) {
	got := CalculateVotingStats(domain.Question{Options: []string{"a", "b"}, Votes: []uint64{0, 0}})
	if got.TotalVotes != 0 || got.Winner != nil {
		t.Fatalf("stats = %+v", got)
	}
	if len(got.Percentages) != 2 || got.Percentages[0] != 0 || got.Percentages[1] != 0 {
		t.Fatalf("Percentages = %v, want [0 0]", got.Percentages)
	}
}

func TestCalculateVotingStatsTieGoesToFirst(t *testing.T) {
	got := CalculateVotingStats(domain.Question{Options: []string{"a", "b", "c"}, Votes: []uint64{1, 2, 2}})
	if got.Winner == nil || got.Winner.Index != 1 {
		t.Fatalf("Winner = %+v, want index 1", got.Winner)
	}
}

func TestCalculateVotingStatsWinnerWithoutOption(t *testing.T) {
	got := CalculateVotingStats(domain.Question{Options: []string{"a"}, Votes: []uint64{0, 5}})
	if got.Winner != nil {
		t.Fatalf("Winner = %+v, want nil", got.Winner)
	}
	if got.TotalVotes != 5 {
		t.Fatalf("TotalVotes = %d", got.TotalVotes)
	}
}

func TestRegistryStats(t *testing.T) {
	forms := []domain.Form{
		{IsActive: true, Questions: make([]domain.Question, 2)},
		{Questions: make([]domain.Question, 1)},
		{IsActive: true},
	}
	got := RegistryStats(forms)
	want := domain.RegistryStats{TotalForms: 3, ActiveForms: 2, InactiveForms: 1, TotalQuestions: 3}
	if got != want {
		t.Fatalf("RegistryStats = %+v, want %+v", got, want)
	}
}
