package scoreboard

import "context"

// NormalizeRunDetails prepares a judge report for display on the scoreboard.
// The runner reports "OK" whenever the program did not crash, correctness is
// decided afterwards by diffing, so an "OK" case with a diff is a wrong answer.
// The submitted source is never part of the scoreboard.
func NormalizeRunDetails(details RunDetails) RunDetails {
	cases := make([]CaseDetails, len(details.Cases))
	copy(cases, details.Cases)
	for i := range cases {
		if cases[i].Meta.Status == "OK" && cases[i].OutDiff != nil {
			cases[i].Meta.Status = "WA"
		}
	}
	details.Cases = cases
	details.Source = ""
	return details
}

func (s *Scoreboard) runDetails(ctx context.Context, run *Run) (*RunDetails, error) {
	if run == nil || run.GUID == "" || s.details == nil {
		return &RunDetails{}, nil
	}
	details, err := s.details.RunDetails(ctx, run.GUID)
	if err != nil {
		return nil, err
	}
	normalized := NormalizeRunDetails(details)
	return &normalized, nil
}
