package model

import "errors"

var (
	// ErrConfiguration is fatal at startup: a required secret is missing or malformed.
	ErrConfiguration = errors.New("configuration error")

	ErrInvalidState      = errors.New("invalid oauth state")
	ErrStateCollision    = errors.New("oauth state collision")
	ErrVerifierNotFound  = errors.New("oauth verifier not found")
	ErrTokenExchange     = errors.New("token exchange failed")
	ErrCredentialExpired = errors.New("credential expired")
	ErrDecryption        = errors.New("decryption failed")

	ErrTransientPublish = errors.New("transient publish failure")
	ErrTerminalPublish  = errors.New("terminal publish failure")

	ErrCredentialNotFound   = errors.New("credential not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrPostNotEditable      = errors.New("post is not editable in its current status")
	ErrInvalidPost          = errors.New("invalid post")
	ErrUnsupportedProvider  = errors.New("unsupported provider")
	ErrSubscriptionInactive = errors.New("subscription inactive")
)
