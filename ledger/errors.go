package ledger

import "errors"

var (
	// ErrNotFound: referenced asset or version does not exist or was deleted.
	ErrNotFound = errors.New("not found")

	// ErrInvalidProposal: empty or malformed proposed fields.
	ErrInvalidProposal = errors.New("invalid proposal")

	// ErrForbidden: actor's role or ownership fails the precondition.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict: the version is not in the expected source state for the
	// attempted transition. Retryable after re-reading current state.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable: a storage collaborator failed; ledger state untouched.
	ErrUnavailable = errors.New("storage unavailable")
)
