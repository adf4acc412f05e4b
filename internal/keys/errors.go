package keys

import "fmt"

// DenialReason identifies why key resolution was refused. The distinction is
// part of the contract: each reason needs different remediation.
type DenialReason string

const (
	ReasonNoCredential         DenialReason = "no-credential"
	ReasonInvalidCredential    DenialReason = "invalid-or-expired-credential"
	ReasonNoMembership         DenialReason = "no-team-membership"
	ReasonSeatLimit            DenialReason = "seat-limit-exceeded"
	ReasonSubscriptionInactive DenialReason = "subscription-inactive"
	ReasonServiceUnreachable   DenialReason = "service-unreachable"
)

// AccessDeniedError represents a refused or failed key resolution
type AccessDeniedError struct {
	Reason  DenialReason
	Message string
	Err     error
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied (%s): %s", e.Reason, e.Message)
}

func (e *AccessDeniedError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the denial is transient (service trouble)
// rather than an authorization decision.
func (e *AccessDeniedError) Retryable() bool {
	return e.Reason == ReasonServiceUnreachable
}

func defaultMessage(reason DenialReason) string {
	switch reason {
	case ReasonNoCredential:
		return "no credential configured"
	case ReasonInvalidCredential:
		return "credential is invalid or expired; log in again"
	case ReasonNoMembership:
		return "your account is not a member of a team; ask an admin to invite you"
	case ReasonSeatLimit:
		return "your team has no free seats; ask an admin to add seats"
	case ReasonSubscriptionInactive:
		return "your team's subscription is inactive; ask an admin to renew it"
	case ReasonServiceUnreachable:
		return "key service unreachable; retry later"
	default:
		return string(reason)
	}
}
