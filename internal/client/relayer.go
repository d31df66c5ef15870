// Package client is the participant side of FHE Worlds: it encrypts country
// choices, talks to the payroll ledger and runs the user decryption protocol
// against the relayer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/platform/timeouts"
	relayerhttp "github.com/louisbranch/fheworlds/internal/services/relayer/api/http"
	"github.com/louisbranch/fheworlds/internal/services/relayer/attest"
	"github.com/louisbranch/fheworlds/internal/userdecrypt"
)

// maxResponseBytes bounds relayer response bodies.
const maxResponseBytes = 8 << 20

// Relayer calls the relayer HTTP API.
type Relayer struct {
	baseURL string
	http    *http.Client
	locale  string
}

// NewRelayer returns a client for the relayer at baseURL. A nil httpClient
// uses one with the default relayer timeout.
func NewRelayer(baseURL string, httpClient *http.Client) (*Relayer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("relayer url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.RelayerRequest}
	}
	return &Relayer{baseURL: baseURL, http: httpClient}, nil
}

// WithLocale returns a copy that asks for error messages in locale.
func (r *Relayer) WithLocale(locale string) *Relayer {
	out := *r
	out.locale = locale
	return &out
}

// Keys fetches the relayer's published key material.
func (r *Relayer) Keys(ctx context.Context) (relayerhttp.Keys, error) {
	var keys relayerhttp.Keys
	err := r.do(ctx, http.MethodGet, "/v1/keys", "", nil, &keys)
	return keys, err
}

// InputProof asks the relayer to attest encrypted inputs. callToken must be
// issued by req.Identity for req.Contract.
func (r *Relayer) InputProof(ctx context.Context, callToken string, req attest.Request) (attest.Response, error) {
	var resp attest.Response
	err := r.do(ctx, http.MethodPost, "/v1/input-proof", callToken, req, &resp)
	return resp, err
}

// SendUserDecrypt posts a user decryption request as is.
func (r *Relayer) SendUserDecrypt(ctx context.Context, req userdecrypt.Request) (userdecrypt.Response, error) {
	var resp userdecrypt.Response
	err := r.do(ctx, http.MethodPost, "/v1/user-decrypt", "", req, &resp)
	return resp, err
}

func (r *Relayer) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.locale != "" {
		req.Header.Set("Accept-Language", r.locale)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("relayer %s: %w", path, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode != http.StatusOK {
		var failure relayerhttp.ErrorResponse
		if err := json.NewDecoder(limited).Decode(&failure); err != nil || failure.Code == "" {
			return fmt.Errorf("relayer %s returned status %d", path, resp.StatusCode)
		}
		return apperrors.New(apperrors.Code(failure.Code), failure.Message)
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
