package analytics

import "github.com/louisbranch/formledger/internal/services/forms/domain"

// VotingStats summarizes one question's tally.
type VotingStats struct {
	TotalVotes  uint64
	Percentages []float64
	// Winner is nil when nobody has voted.
	Winner *WinningOption
}

// WinningOption is the option holding the most votes. Ties go to the lowest
// index.
type WinningOption struct {
	Index      int
	Option     string
	Percentage float64
}

// CalculateVotingStats computes per-option percentages and the winner.
func CalculateVotingStats(q domain.Question) VotingStats {
	total := q.TotalVotes()
	if total == 0 {
		return VotingStats{Percentages: make([]float64, len(q.Options))}
	}

	stats := VotingStats{TotalVotes: total, Percentages: make([]float64, len(q.Votes))}
	winner := 0
	for i, count := range q.Votes {
		stats.Percentages[i] = float64(count) / float64(total) * 100
		if count > q.Votes[winner] {
			winner = i
		}
	}
	if winner < len(q.Options) {
		stats.Winner = &WinningOption{
			Index:      winner,
			Option:     q.Options[winner],
			Percentage: stats.Percentages[winner],
		}
	}
	return stats
}

// RegistryStats counts forms by visibility and sums their questions.
func RegistryStats(forms []domain.Form) domain.RegistryStats {
	stats := domain.RegistryStats{TotalForms: len(forms)}
	for _, f := range forms {
		if f.IsActive {
			stats.ActiveForms++
		} else {
			stats.InactiveForms++
		}
		stats.TotalQuestions += len(f.Questions)
	}
	return stats
}
