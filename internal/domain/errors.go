package domain

import "errors"

var (
	// ErrMissingCode indicates an OAuth callback arrived without a code.
	ErrMissingCode = errors.New("install: no code received")
	// ErrMissingSignedRequest indicates the link form carried no signed request.
	ErrMissingSignedRequest = errors.New("link: no signed request sent")
	// ErrMissingRedirectURI indicates the redirect_uri query parameter is absent.
	ErrMissingRedirectURI = errors.New("link: no redirect uri parameter sent")
	// ErrMalformedSignedRequest indicates the envelope does not split into
	// exactly two dot-separated segments.
	ErrMalformedSignedRequest = errors.New("link: signed request is malformatted")
	// ErrUnknownKey indicates the identity token's key id is not in the key set.
	ErrUnknownKey = errors.New("identity: unknown key id")
	// ErrTokenInvalid indicates a signature, audience, issuer, or expiry mismatch.
	ErrTokenInvalid = errors.New("identity: token invalid")
	// ErrNotFound signals a missing row.
	ErrNotFound = errors.New("not found")
)
