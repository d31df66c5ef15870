// Package payrollv1 defines the fheworlds.payroll.v1 wire contract. Messages
// travel with the JSON codec registered by internal/platform/grpc; handles
// are 0x-prefixed hex strings.
package payrollv1

// GetContractInfoRequest asks for the instance coordinates.
type GetContractInfoRequest struct{}

// GetContractInfoResponse describes the payroll instance.
type GetContractInfoResponse struct {
	ChainId         uint64   `json:"chain_id"`
	ContractAddress string   `json:"contract_address"`
	CountryIds      []uint32 `json:"country_ids"`
}

type ListSupportedCountryIdsRequest struct{}

type ListSupportedCountryIdsResponse struct {
	CountryIds []uint32 `json:"country_ids"`
}

type HasJoinedRequest struct {
	Identity string `json:"identity"`
}

type HasJoinedResponse struct {
	Joined bool `json:"joined"`
}

type GetEncryptedCountryRequest struct {
	Identity string `json:"identity"`
}

// GetEncryptedCountryResponse carries the country handle, or the empty
// handle when the identity has not joined.
type GetEncryptedCountryResponse struct {
	Handle string `json:"handle"`
}

type GetEncryptedSalaryRequest struct {
	Identity string `json:"identity"`
}

type GetEncryptedSalaryResponse struct {
	Handle  string `json:"handle"`
	Claimed bool   `json:"claimed"`
}

// JoinCountryRequest submits an encrypted country for the authenticated
// caller. CountryId is the disclosed tag checked against the catalog.
type JoinCountryRequest struct {
	CountryId        uint32 `json:"country_id"`
	EncryptedCountry string `json:"encrypted_country"`
	InputProof       []byte `json:"input_proof"`
}

type JoinCountryResponse struct {
	CountryHandle string `json:"country_handle"`
	SalaryHandle  string `json:"salary_handle"`
}

type ClaimSalaryRequest struct{}

type ClaimSalaryResponse struct {
	SalaryHandle string `json:"salary_handle"`
}

type GetCiphertextRequest struct {
	Handle string `json:"handle"`
}

type GetCiphertextResponse struct {
	Handle     string `json:"handle"`
	Ciphertext []byte `json:"ciphertext"`
}

// CheckAccessRequest asks whether account may decrypt handle.
type CheckAccessRequest struct {
	Handle  string `json:"handle"`
	Account string `json:"account"`
}

type CheckAccessResponse struct {
	Allowed bool `json:"allowed"`
}
