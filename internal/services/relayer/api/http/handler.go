// Package http exposes the relayer over HTTP: key discovery, input
// attestation and user decryption.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/services/relayer/attest"
	"github.com/louisbranch/fheworlds/internal/userdecrypt"
)

// maxBodyBytes bounds request bodies; a PN13 ciphertext is well under 1 MiB.
const maxBodyBytes = 8 << 20

// Attester signs input proofs for the identity that issued callToken.
type Attester interface {
	Attest(ctx context.Context, callToken string, req attest.Request) (attest.Response, error)
}

// KMS answers user decryption requests.
type KMS interface {
	UserDecrypt(ctx context.Context, req userdecrypt.Request) (userdecrypt.Response, error)
}

// Keys is the public material clients need before encrypting or decrypting.
type Keys struct {
	ChainID           uint64 `json:"chain_id"`
	AttesterPublicKey []byte `json:"attester_public_key"`
	FHEPublicKey      []byte `json:"fhe_public_key"`
	DecryptionDomain  string `json:"decryption_domain"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler serves the relayer routes.
type Handler struct {
	attester Attester
	kms      KMS
	keys     Keys
}

// NewHandler builds a Handler.
func NewHandler(attester Attester, kms KMS, keys Keys) (*Handler, error) {
	if attester == nil {
		return nil, errors.New("attester is required")
	}
	if kms == nil {
		return nil, errors.New("kms is required")
	}
	return &Handler{attester: attester, kms: kms, keys: keys}, nil
}

// RegisterRoutes registers the relayer routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/keys", h.handleKeys)
		r.Post("/input-proof", h.handleInputProof)
		r.Post("/user-decrypt", h.handleUserDecrypt)
	})
}

// Router returns a chi router with every route registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.keys)
}

func (h *Handler) handleInputProof(w http.ResponseWriter, r *http.Request) {
	var req attest.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeProofInvalid, "request body is invalid", err))
		return
	}
	resp, err := h.attester.Attest(r.Context(), bearerToken(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUserDecrypt(w http.ResponseWriter, r *http.Request) {
	var req userdecrypt.Request
	if err := decodeBody(w, r, &req); err != nil {
		log.Printf("decode user decrypt request: %v", err)
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeAuthorizationRequestInvalid, "request body is invalid", map[string]string{"Field": "body"}))
		return
	}
	resp, err := h.kms.UserDecrypt(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// bearerToken returns the call token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(value) <= len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(value[len(prefix):])
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := apperrors.LocalizedMessage(err, r.Header.Get("Accept-Language"))
	if code == apperrors.CodeUnknown {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, code.HTTPStatus(), ErrorResponse{Code: string(code), Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
