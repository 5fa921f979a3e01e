package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface used across the module.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider resolves named, scoped loggers. glog.ProviderFromLogger
// satisfies this interface.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ResolveLogger picks the logger for a component: an explicit logger wins,
// then a provider-scoped logger, then the default stdout logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger != nil {
		return provider, logger
	}
	if provider != nil {
		if scoped := provider.GetLogger(name); scoped != nil {
			return provider, scoped
		}
	}
	return provider, defLogger{}
}

// CredentialType identifies the syntactic family of a credential.
type CredentialType string

const (
	CredentialEmail    CredentialType = "email"
	CredentialPhone    CredentialType = "phone"
	CredentialUsername CredentialType = "username"
)

// ParseCredentialType maps a route segment onto a CredentialType.
func ParseCredentialType(s string) (CredentialType, bool) {
	switch CredentialType(s) {
	case CredentialEmail, CredentialPhone, CredentialUsername:
		return CredentialType(s), true
	}
	return "", false
}

// VerificationMethod selects the backend that proves a credential.
type VerificationMethod string

const (
	MethodEmailCode VerificationMethod = "email_code"
	MethodSMSCode   VerificationMethod = "sms_code"
	MethodPassword  VerificationMethod = "password"
	MethodFace      VerificationMethod = "face"
	MethodOAuth     VerificationMethod = "oauth"
)

// ParseVerificationMethod maps a wire value onto a VerificationMethod.
func ParseVerificationMethod(s string) (VerificationMethod, bool) {
	switch VerificationMethod(s) {
	case MethodEmailCode, MethodSMSCode, MethodPassword, MethodFace, MethodOAuth:
		return VerificationMethod(s), true
	}
	return "", false
}

// VerificationInput is the client-supplied proof presented on verify.
type VerificationInput struct {
	Value string `json:"value"`
	OTP   string `json:"otp,omitempty"`
}

// Config holds orchestration options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAttemptTTL() time.Duration
	GetCodeTTL() time.Duration
	GetSweepInterval() time.Duration
	GetRateLimitCeiling() int
	GetRateLimitWindow() time.Duration
}

// CodeSender delivers a verification code out of band (email, SMS).
type CodeSender interface {
	Send(ctx context.Context, credential, code string) error
}

// CodeSenderFunc adapts a function into a CodeSender.
type CodeSenderFunc func(ctx context.Context, credential, code string) error

// Send satisfies the CodeSender interface.
func (f CodeSenderFunc) Send(ctx context.Context, credential, code string) error {
	if f == nil {
		return nil
	}
	return f(ctx, credential, code)
}

// NewDefaultLogger returns the stdout fallback logger.
func NewDefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
