// Package backup implements the Google Drive backup synchronization
// engine: the authentication session, the remote backup folder, the
// versioned snapshot repository, and the push/pull/no-op sync decision.
package backup

// Resolution records which side won a sync conflict.
type Resolution string

const (
	// ResolutionNone means there was nothing to reconcile against
	// (first sync, or no conflict decision was reached).
	ResolutionNone Resolution = ""

	// KeptLocal means the local dataset was authoritative and was pushed.
	KeptLocal Resolution = "kept-local"

	// KeptRemote means the remote snapshot was authoritative and was pulled.
	KeptRemote Resolution = "kept-remote"
)

// Outcome is the result of a repository or sync operation. It is returned
// to callers and never stored. Messages are user-facing and deliberately
// generic on failure — granular causes are logged, not surfaced.
type Outcome struct {
	Succeeded  bool       `json:"succeeded"`
	Message    string     `json:"message"`
	Resolution Resolution `json:"resolution,omitempty"`
}

// failure builds a failed Outcome with a user-facing message.
func failure(message string) Outcome {
	return Outcome{Succeeded: false, Message: message}
}

// success builds a successful Outcome with a user-facing message.
func success(message string) Outcome {
	return Outcome{Succeeded: true, Message: message}
}
