package domain

import "github.com/louisbranch/fheworlds/internal/fhe/handle"

// JoinPayload records the handles assigned at join.
type JoinPayload struct {
	CountryHandle handle.Handle `json:"country_handle"`
	SalaryHandle  handle.Handle `json:"salary_handle"`
}

// ClaimPayload records the salary handle released by a claim.
type ClaimPayload struct {
	SalaryHandle handle.Handle `json:"salary_handle"`
}
