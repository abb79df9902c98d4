package controller

import (
	"fmt"

	"github.com/mensylisir/xmshell/session"
)

// Status is the terminal or suspended state of one Execute call.
type Status int

const (
	StatusSuccess Status = iota
	StatusRejected
	StatusPendingAuth
	StatusPendingConfirmation
	StatusError
)

// String returns a string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRejected:
		return "rejected"
	case StatusPendingAuth:
		return "pending_auth"
	case StatusPendingConfirmation:
		return "pending_confirmation"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("unknown_status_%d", int(s))
	}
}

// ErrKind identifies the failure class of an error outcome.
type ErrKind string

const (
	ErrInvalidCommand       ErrKind = "InvalidCommand"
	ErrCommandNotInstalled  ErrKind = "CommandNotInstalled"
	ErrAuthenticationFailed ErrKind = "AuthenticationFailed"
	ErrExecutionFailed      ErrKind = "ExecutionFailed"
	ErrToolException        ErrKind = "ToolException"
)

// ConfirmationAnswer is the resume payload for a confirmation pause.
type ConfirmationAnswer struct {
	// ID is the correlation identifier of the pause being answered. The
	// orchestrator must reject mismatched identifiers before calling in.
	ID        string
	Confirmed bool
}

// Request is one invocation of the execution controller. A plain request
// carries only Command. A credential resume additionally carries Credential;
// a confirmation resume carries Confirmation.
type Request struct {
	Command      string
	Credential   string
	Confirmation *ConfirmationAnswer
}

// Outcome is the result of one Execute call: either terminal (success,
// rejected, error) or suspended (pending_auth, pending_confirmation, with
// Request carrying the pause details).
type Outcome struct {
	Status  Status
	ErrKind ErrKind
	Stdout  string
	Stderr  string
	Details string
	Request *session.PendingRequest
}

// Pending reports whether the episode is suspended waiting for external input.
func (o Outcome) Pending() bool {
	return o.Status == StatusPendingAuth || o.Status == StatusPendingConfirmation
}

type credentialSourceKind int

const (
	credentialAbsent credentialSourceKind = iota
	credentialFresh
	credentialCached
)

// CredentialSource says where the elevation secret for this call came from:
// freshly supplied by the external credential channel, cached by a prior
// exchange in the same session, or not available at all.
type CredentialSource struct {
	kind   credentialSourceKind
	secret string
}

// FreshCredential wraps a secret supplied in the current call.
func FreshCredential(secret string) CredentialSource {
	return CredentialSource{kind: credentialFresh, secret: secret}
}

// CachedCredential wraps a secret read from session state.
func CachedCredential(secret string) CredentialSource {
	return CredentialSource{kind: credentialCached, secret: secret}
}

// AbsentCredential marks that no secret is available.
func AbsentCredential() CredentialSource {
	return CredentialSource{kind: credentialAbsent}
}

// Secret returns the secret and whether one is present.
func (c CredentialSource) Secret() (string, bool) {
	return c.secret, c.kind != credentialAbsent
}

// Fresh reports whether the secret was supplied in the current call and has
// not been cached yet.
func (c CredentialSource) Fresh() bool {
	return c.kind == credentialFresh
}
