package authkit

import (
	"context"
	"strings"

	"github.com/goliatone/go-authkit/messaging"
	"github.com/segmentio/kafka-go"
)

// AuditorAware resolves the identity attributed to writes
type AuditorAware interface {
	CurrentAuditor(ctx context.Context) (string, bool)
}

// AuditorFunc adapts a function to AuditorAware
type AuditorFunc func(ctx context.Context) (string, bool)

func (f AuditorFunc) CurrentAuditor(ctx context.Context) (string, bool) {
	return f(ctx)
}

// SecurityAuditor reads the auditor from the Authentication carried by the
// context. It reports absence when there is no authentication, when the
// principal is not authenticated or when its name is blank.
type SecurityAuditor struct{}

var _ AuditorAware = SecurityAuditor{}

func (SecurityAuditor) CurrentAuditor(ctx context.Context) (string, bool) {
	authn, ok := AuthenticationFromContext(ctx)
	if !ok || !authn.IsAuthenticated() {
		return "", false
	}

	name := strings.TrimSpace(authn.GetName())
	if name == "" {
		return "", false
	}

	return name, true
}

// CurrentAuditor is a shortcut for SecurityAuditor{}.CurrentAuditor
func CurrentAuditor(ctx context.Context) (string, bool) {
	return SecurityAuditor{}.CurrentAuditor(ctx)
}

// AuditorHeaders tags outgoing broker messages with the current auditor.
// It is a messaging.HeaderFunc.
func AuditorHeaders(ctx context.Context) []kafka.Header {
	auditor, ok := CurrentAuditor(ctx)
	if !ok {
		return nil
	}
	return []kafka.Header{{Key: messaging.HeaderAuditor, Value: []byte(auditor)}}
}

var _ messaging.HeaderFunc = AuditorHeaders
