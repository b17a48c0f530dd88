package recsync

import "fmt"

// GetHistory returns the most recent runs, ordered newest first.
func (s *Service) GetHistory(limit int) ([]*RunResult, error) {
	if s.journal == nil {
		return nil, fmt.Errorf("%w: no journal configured", ErrJournal)
	}
	runs, err := s.journal.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}
