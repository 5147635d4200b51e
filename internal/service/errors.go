package service

import "errors"

// Service-level errors. Handlers map these onto response codes.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRole          = errors.New("invalid role")
	ErrPasswordTooLong      = errors.New("password exceeds 72 bytes")
	ErrEmailTaken           = errors.New("email already registered")
	ErrPhoneTaken           = errors.New("phone already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrSpeakingTestNotFound = errors.New("speaking test not found")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	ErrNoTopics   = errors.New("at least one topic is required")
	ErrEmptyTopic = errors.New("topic must not be empty")
)
