package retry

// Stats are the running totals of every retried execution of one operation
type Stats struct {
	TotalExecutions      int     `json:"total_executions"`
	SuccessfulExecutions int     `json:"successful_executions"`
	FailedExecutions     int     `json:"failed_executions"`
	TotalAttempts        int     `json:"total_attempts"`
	AvgAttemptsToSuccess float64 `json:"avg_attempts_to_success"`
}

func (s *Stats) record(attempts int, succeeded bool) {
	s.TotalExecutions++
	s.TotalAttempts += attempts

	if succeeded {
		s.SuccessfulExecutions++
	} else {
		s.FailedExecutions++
	}

	if s.SuccessfulExecutions > 0 {
		s.AvgAttemptsToSuccess = float64(s.TotalAttempts) / float64(s.SuccessfulExecutions)
	}
}
