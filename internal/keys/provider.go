package keys

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/recallhq/recall/internal/logging"
)

// TeamKey is a resolved team encryption key.
type TeamKey struct {
	Material []byte
	Version  int
	TeamID   string
}

// Credential is a caller-owned bearer credential. It is passed into the
// provider at construction time; there is no ambient process-wide token.
type Credential struct {
	Token string
}

// Provider resolves the current team's key from the key service and caches
// it in memory for the lifetime of the process. Nothing is written to disk.
type Provider struct {
	endpoint   string
	credential Credential
	client     *http.Client

	mu     sync.Mutex
	cached *TeamKey
}

// resolveResponse is the wire shape of the key service response.
type resolveResponse struct {
	HasAccess  bool   `json:"hasAccess"`
	Key        string `json:"key"` // base64, 32 bytes decoded
	KeyVersion int    `json:"keyVersion"`
	TeamID     string `json:"teamId"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

// NewProvider creates a Provider for the given endpoint and credential.
// A nil client uses a default with a 10 second timeout.
func NewProvider(endpoint string, credential Credential, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		endpoint:   endpoint,
		credential: credential,
		client:     client,
	}
}

// Resolve returns the team key, from cache when available. Denials carry a
// reason so callers can tell "retry" cases from "contact your admin" cases.
func (p *Provider) Resolve(ctx context.Context) (*TeamKey, error) {
	p.mu.Lock()
	if p.cached != nil {
		key := p.cached
		p.mu.Unlock()
		return key, nil
	}
	p.mu.Unlock()

	if strings.TrimSpace(p.credential.Token) == "" {
		return nil, &AccessDeniedError{
			Reason:  ReasonNoCredential,
			Message: "no credential configured; run `recall login` or set RECALL_TOKEN",
		}
	}

	key, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.cached != nil && key.Version > p.cached.Version {
		logging.Warn("team key rotated: version %d -> %d; existing envelopes need re-encryption", p.cached.Version, key.Version)
	}
	p.cached = key
	p.mu.Unlock()

	return key, nil
}

// InvalidateCache drops the cached key. Used on logout and when the store
// detects a key-version mismatch.
func (p *Provider) InvalidateCache() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func (p *Provider) fetch(ctx context.Context) (*TeamKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build key request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.credential.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// Network failure is not an authorization failure; callers offer retry.
		return nil, &AccessDeniedError{
			Reason:  ReasonServiceUnreachable,
			Message: "key service unreachable; check your connection and retry",
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &AccessDeniedError{
			Reason:  ReasonServiceUnreachable,
			Message: "key service response could not be read; retry",
			Err:     err,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AccessDeniedError{
			Reason:  ReasonInvalidCredential,
			Message: "credential is invalid or expired; log in again",
		}
	}
	if resp.StatusCode >= 500 {
		return nil, &AccessDeniedError{
			Reason:  ReasonServiceUnreachable,
			Message: fmt.Sprintf("key service returned %d; retry later", resp.StatusCode),
		}
	}

	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &AccessDeniedError{
			Reason:  ReasonServiceUnreachable,
			Message: "key service returned a malformed response; retry later",
			Err:     err,
		}
	}

	if !parsed.HasAccess {
		return nil, denialFromResponse(&parsed)
	}

	material, err := base64.StdEncoding.DecodeString(parsed.Key)
	if err != nil || len(material) != 32 {
		return nil, &AccessDeniedError{
			Reason:  ReasonServiceUnreachable,
			Message: "key service returned unusable key material; retry later",
		}
	}

	logging.Debug("resolved team key for team %s (version %d)", parsed.TeamID, parsed.KeyVersion)
	return &TeamKey{
		Material: material,
		Version:  parsed.KeyVersion,
		TeamID:   parsed.TeamID,
	}, nil
}

// denialFromResponse maps a structured service denial onto a local reason,
// keeping the service's human-readable message when it supplied one.
func denialFromResponse(resp *resolveResponse) *AccessDeniedError {
	reason := DenialReason(resp.Reason)
	switch reason {
	case ReasonNoMembership, ReasonSeatLimit, ReasonSubscriptionInactive, ReasonInvalidCredential:
		// Known denial reasons pass through.
	default:
		reason = ReasonInvalidCredential
	}

	message := resp.Message
	if message == "" {
		message = defaultMessage(reason)
	}
	return &AccessDeniedError{Reason: reason, Message: message}
}
