package lifecycle

import "errors"

var (
	// ErrBadToken covers empty, malformed, and unknown tokens alike, so the
	// response never reveals whether a product id exists.
	ErrBadToken = errors.New("invalid token")

	// ErrInvalidLink means the token decoded to a real product but is not the
	// token that would have been issued for it.
	ErrInvalidLink = errors.New("invalid activation link")

	// ErrForbidden means the caller is not the product's creator.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyActive is the idempotent no-op outcome of re-visiting a link.
	ErrAlreadyActive = errors.New("product already active")
)
