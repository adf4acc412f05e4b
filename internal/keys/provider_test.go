package keys

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func grantResponse(version int) resolveResponse {
	material := make([]byte, 32)
	for i := range material {
		material[i] = byte(version)
	}
	return resolveResponse{
		HasAccess:  true,
		Key:        base64.StdEncoding.EncodeToString(material),
		KeyVersion: version,
		TeamID:     "team-1",
	}
}

func newKeyServer(t *testing.T, resp resolveResponse, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestProvider_Resolve(t *testing.T) {
	server := newKeyServer(t, grantResponse(3), nil)
	defer server.Close()

	p := NewProvider(server.URL, Credential{Token: "tok"}, server.Client())
	key, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if key.Version != 3 {
		t.Errorf("Resolve() version = %d, want 3", key.Version)
	}
	if key.TeamID != "team-1" {
		t.Errorf("Resolve() teamId = %q, want team-1", key.TeamID)
	}
	if len(key.Material) != 32 {
		t.Errorf("Resolve() key material is %d bytes, want 32", len(key.Material))
	}
}

func TestProvider_CachesForProcessLifetime(t *testing.T) {
	var hits int32
	server := newKeyServer(t, grantResponse(1), &hits)
	defer server.Close()

	p := NewProvider(server.URL, Credential{Token: "tok"}, server.Client())
	for i := 0; i < 3; i++ {
		if _, err := p.Resolve(context.Background()); err != nil {
			t.Fatalf("Resolve() call %d error = %v", i, err)
		}
	}
	if hits != 1 {
		t.Errorf("key service hit %d times, want 1 (cached)", hits)
	}

	p.InvalidateCache()
	if _, err := p.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() after invalidate error = %v", err)
	}
	if hits != 2 {
		t.Errorf("key service hit %d times after invalidate, want 2", hits)
	}
}

func TestProvider_NoCredential(t *testing.T) {
	p := NewProvider("http://unused.invalid", Credential{}, nil)
	_, err := p.Resolve(context.Background())

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Resolve() error = %v, want AccessDeniedError", err)
	}
	if denied.Reason != ReasonNoCredential {
		t.Errorf("Resolve() reason = %s, want %s", denied.Reason, ReasonNoCredential)
	}
}

func TestProvider_DenialReasons(t *testing.T) {
	tests := []struct {
		name       string
		resp       resolveResponse
		wantReason DenialReason
		wantInMsg  string
	}{
		{
			name:       "no team membership",
			resp:       resolveResponse{HasAccess: false, Reason: "no-team-membership"},
			wantReason: ReasonNoMembership,
			wantInMsg:  "invite",
		},
		{
			name:       "subscription inactive",
			resp:       resolveResponse{HasAccess: false, Reason: "subscription-inactive"},
			wantReason: ReasonSubscriptionInactive,
			wantInMsg:  "subscription",
		},
		{
			name:       "seat limit",
			resp:       resolveResponse{HasAccess: false, Reason: "seat-limit-exceeded"},
			wantReason: ReasonSeatLimit,
			wantInMsg:  "seats",
		},
		{
			name:       "service message wins",
			resp:       resolveResponse{HasAccess: false, Reason: "seat-limit-exceeded", Message: "team Acme is full"},
			wantReason: ReasonSeatLimit,
			wantInMsg:  "Acme",
		},
	}

	messages := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newKeyServer(t, tt.resp, nil)
			defer server.Close()

			p := NewProvider(server.URL, Credential{Token: "tok"}, server.Client())
			_, err := p.Resolve(context.Background())

			var denied *AccessDeniedError
			if !errors.As(err, &denied) {
				t.Fatalf("Resolve() error = %v, want AccessDeniedError", err)
			}
			if denied.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", denied.Reason, tt.wantReason)
			}
			if !strings.Contains(denied.Message, tt.wantInMsg) {
				t.Errorf("message %q does not mention %q", denied.Message, tt.wantInMsg)
			}
			if denied.Retryable() {
				t.Error("authorization denial marked retryable")
			}
			messages[string(tt.wantReason)] = denied.Message
		})
	}

	// Distinct denials must read differently; each needs its own remediation.
	if messages[string(ReasonNoMembership)] == messages[string(ReasonSubscriptionInactive)] {
		t.Error("no-team-membership and subscription-inactive produce identical guidance")
	}
}

func TestProvider_ServiceUnreachable(t *testing.T) {
	server := newKeyServer(t, grantResponse(1), nil)
	server.Close() // connection refused from here on

	p := NewProvider(server.URL, Credential{Token: "tok"}, nil)
	_, err := p.Resolve(context.Background())

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Resolve() error = %v, want AccessDeniedError", err)
	}
	if denied.Reason != ReasonServiceUnreachable {
		t.Errorf("reason = %s, want %s", denied.Reason, ReasonServiceUnreachable)
	}
	if !denied.Retryable() {
		t.Error("service-unreachable denial should be retryable")
	}
}

func TestProvider_ExpiredCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewProvider(server.URL, Credential{Token: "stale"}, server.Client())
	_, err := p.Resolve(context.Background())

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Resolve() error = %v, want AccessDeniedError", err)
	}
	if denied.Reason != ReasonInvalidCredential {
		t.Errorf("reason = %s, want %s", denied.Reason, ReasonInvalidCredential)
	}
}

func TestProvider_MalformedKeyMaterial(t *testing.T) {
	server := newKeyServer(t, resolveResponse{
		HasAccess:  true,
		Key:        base64.StdEncoding.EncodeToString([]byte("short")),
		KeyVersion: 1,
	}, nil)
	defer server.Close()

	p := NewProvider(server.URL, Credential{Token: "tok"}, server.Client())
	if _, err := p.Resolve(context.Background()); err == nil {
		t.Error("Resolve() accepted non-32-byte key material")
	}
}
