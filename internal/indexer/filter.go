package indexer

import "fluxCapacitor/internal/model"

// Filter results, also used as the outcome metric label.
const (
	ReasonEligible   = "eligible"
	ReasonStatus     = "status"
	ReasonNotAllowed = "not_allowed"
)

// AllowList answers whether an account is trusted.
type AllowList interface {
	Contains(accountID string) bool
}

// Filter decides which execution outcomes have their logs decoded.
type Filter struct {
	allow AllowList
}

func NewFilter(allow AllowList) *Filter {
	return &Filter{allow: allow}
}

// Eligible is true when the outcome succeeded and its executor is trusted.
func (f *Filter) Eligible(outcome model.ExecutionOutcome) bool {
	return f.Reason(outcome) == ReasonEligible
}

// Reason classifies outcome. Status is checked before the allow-list.
func (f *Filter) Reason(outcome model.ExecutionOutcome) string {
	if !outcome.Status.IsSuccess() {
		return ReasonStatus
	}
	if !f.allow.Contains(outcome.ExecutorID) {
		return ReasonNotAllowed
	}
	return ReasonEligible
}
