/*
gateway.go - HTTP client for the external e-filing system

PURPOSE:
  Implements filing.SubmissionGateway over HTTP: serialize (wire.go), sign
  (signer.go), submit with bounded retries, and poll submission status.

RETRY POLICY:
  Submit retries ONLY transport-class failures (connect errors, timeouts,
  5xx) with exponential backoff and a small fixed attempt cap. The remote
  system does not guarantee idempotent submits, so retries are bounded and
  each attempt is visible to the caller's audit trail - never a silent
  loop. Structural rejections (4xx with an error body) are terminal for the
  attempt. Status polling is read-only and safe to retry indefinitely.

STATUS MAPPING:
  Remote result codes map onto the local vocabulary:
    "P" -> PENDING, "A" -> ACCEPTED, "R" -> REJECTED
  Unknown codes are treated as transient so callers keep polling rather
  than corrupting local state.

SEE ALSO:
  - filing/store.go: The interface this implements
  - filing/service.go: State transitions driven by these results
*/
package efile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/warp/filing-engine/filing"
)

// =============================================================================
// GATEWAY
// =============================================================================

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultTimeout     = 30 * time.Second
)

// Gateway submits filings to the external authority.
// Implements filing.SubmissionGateway.
type Gateway struct {
	BaseURL string
	Signer  Signer
	Client  *http.Client

	// MaxAttempts bounds submit retries (transport failures only).
	MaxAttempts int

	// BackoffBase is the first retry delay; each retry doubles it.
	BackoffBase time.Duration
}

var _ filing.SubmissionGateway = (*Gateway)(nil)

// NewGateway returns a gateway with default retry and timeout settings.
func NewGateway(baseURL string, signer Signer) *Gateway {
	return &Gateway{
		BaseURL:     baseURL,
		Signer:      signer,
		Client:      &http.Client{Timeout: defaultTimeout},
		MaxAttempts: defaultMaxAttempts,
		BackoffBase: defaultBackoffBase,
	}
}

// =============================================================================
// WIRE ENVELOPES
// =============================================================================

// submitEnvelope wraps the signed payload. The signature travels out-of-band
// from the XML document itself.
type submitEnvelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	Algorithm string `json:"algorithm"`
}

type submitResponse struct {
	SubmissionID   string               `json:"submission_id"`
	TrackingNumber string               `json:"tracking_number"`
	Errors         []filing.RemoteError `json:"errors,omitempty"`
}

type statusResponse struct {
	Status               string               `json:"status"` // "P", "A", "R"
	AcknowledgmentNumber string               `json:"acknowledgment_number,omitempty"`
	Timestamp            string               `json:"timestamp,omitempty"`
	Errors               []filing.RemoteError `json:"errors,omitempty"`
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit serializes, signs and sends the filing.
func (g *Gateway) Submit(ctx context.Context, record *filing.FilingRecord, employer filing.EmployerAccount) (filing.SubmissionReceipt, error) {
	doc := BuildReturn(record, employer)
	return g.send(ctx, doc)
}

// SubmitAmendment sends an amendment referencing the original's submission.
func (g *Gateway) SubmitAmendment(ctx context.Context, record, original *filing.FilingRecord, employer filing.EmployerAccount, reason string) (filing.SubmissionReceipt, error) {
	doc := BuildReturn(record, employer).WithAmendment(original.SubmissionID, reason)
	return g.send(ctx, doc)
}

func (g *Gateway) send(ctx context.Context, doc ReturnDocument) (filing.SubmissionReceipt, error) {
	payload, err := doc.Marshal()
	if err != nil {
		return filing.SubmissionReceipt{}, err
	}
	signature, err := g.Signer.Sign(payload)
	if err != nil {
		return filing.SubmissionReceipt{}, fmt.Errorf("sign payload: %w", err)
	}

	body, err := json.Marshal(submitEnvelope{
		Payload:   string(payload),
		Signature: signature,
		Algorithm: g.Signer.Algorithm(),
	})
	if err != nil {
		return filing.SubmissionReceipt{}, err
	}

	receipt := filing.SubmissionReceipt{Payload: payload, Signature: signature}

	var lastErr error
	for attempt := 1; attempt <= g.attempts(); attempt++ {
		if attempt > 1 {
			delay := g.backoff() << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return receipt, &filing.GatewayError{Operation: "submit", Transient: true, Err: ctx.Err()}
			}
		}

		resp, err := g.post(ctx, g.BaseURL+"/submissions", body)
		if err != nil {
			lastErr = &filing.GatewayError{Operation: "submit", Transient: true, Err: err}
			continue
		}

		switch {
		case resp.status == http.StatusOK || resp.status == http.StatusAccepted:
			var sr submitResponse
			if err := json.Unmarshal(resp.body, &sr); err != nil {
				return receipt, &filing.GatewayError{Operation: "submit", Transient: true, Err: err}
			}
			receipt.SubmissionID = filing.SubmissionID(sr.SubmissionID)
			receipt.TrackingNumber = sr.TrackingNumber
			return receipt, nil

		case resp.status >= 500:
			lastErr = &filing.GatewayError{
				Operation: "submit",
				Transient: true,
				Err:       fmt.Errorf("remote status %d", resp.status),
			}
			continue

		default:
			// 4xx: the remote system read the payload and refused it.
			var sr submitResponse
			_ = json.Unmarshal(resp.body, &sr)
			return receipt, &filing.GatewayError{
				Operation:  "submit",
				RemoteCode: fmt.Sprintf("%d", resp.status),
				Remote:     sr.Errors,
				Transient:  false,
			}
		}
	}
	return receipt, lastErr
}

// =============================================================================
// STATUS
// =============================================================================

// CheckStatus polls the remote system for a submission's result.
func (g *Gateway) CheckStatus(ctx context.Context, id filing.SubmissionID) (filing.StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/submissions/"+string(id)+"/status", nil)
	if err != nil {
		return filing.StatusResult{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return filing.StatusResult{}, &filing.GatewayError{Operation: "status", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return filing.StatusResult{}, &filing.GatewayError{Operation: "status", Transient: true, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return filing.StatusResult{}, &filing.GatewayError{
			Operation:  "status",
			RemoteCode: fmt.Sprintf("%d", resp.StatusCode),
			Transient:  resp.StatusCode >= 500,
		}
	}

	var sr statusResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return filing.StatusResult{}, &filing.GatewayError{Operation: "status", Transient: true, Err: err}
	}

	result := filing.StatusResult{Errors: sr.Errors}
	switch sr.Status {
	case "P":
		result.Status = filing.SubmissionPending
	case "A":
		result.Status = filing.SubmissionAccepted
		result.AcknowledgmentNumber = sr.AcknowledgmentNumber
		if ts, err := time.Parse(time.RFC3339, sr.Timestamp); err == nil {
			result.AcknowledgedAt = ts
		}
	case "R":
		result.Status = filing.SubmissionRejected
	default:
		return filing.StatusResult{}, &filing.GatewayError{
			Operation:  "status",
			RemoteCode: sr.Status,
			Transient:  true,
			Err:        fmt.Errorf("unknown result code %q", sr.Status),
		}
	}
	return result, nil
}

// =============================================================================
// HTTP PLUMBING
// =============================================================================

type httpResult struct {
	status int
	body   []byte
}

func (g *Gateway) post(ctx context.Context, url string, body []byte) (httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return httpResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return httpResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return httpResult{}, err
	}
	return httpResult{status: resp.StatusCode, body: raw}, nil
}

func (g *Gateway) attempts() int {
	if g.MaxAttempts > 0 {
		return g.MaxAttempts
	}
	return defaultMaxAttempts
}

func (g *Gateway) backoff() time.Duration {
	if g.BackoffBase > 0 {
		return g.BackoffBase
	}
	return defaultBackoffBase
}
