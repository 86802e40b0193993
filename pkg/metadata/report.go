package metadata

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Result is what happened when one provider was asked about one resource.
type Result struct {
	Provider string        `json:"provider"`
	Outcome  string        `json:"outcome"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Report lists the result of every provider queried for a resource, in priority
// order.
type Report struct {
	Kind    string   `json:"kind"`
	Results []Result `json:"results"`
}

// Failed returns the results of the providers that failed.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Contributors returns the slugs of the providers that answered.
func (r *Report) Contributors() []string {
	var slugs []string
	for _, res := range r.Results {
		if res.Outcome == OutcomeSuccess {
			slugs = append(slugs, res.Provider)
		}
	}
	return slugs
}
