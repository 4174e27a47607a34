package service

import "errors"

// Sentinel errors surfaced to controllers. Controllers translate them
// to HTTP status codes; services never import fiber.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAmountBelowMinimum  = errors.New("amount below minimum purchase")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailAlreadyUsed    = errors.New("email already registered")
	ErrSessionNotFound     = errors.New("chat session not found")
	ErrTemplateNotFound    = errors.New("document template not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrProviderUnavailable = errors.New("no ai provider available")
	ErrAccountBlocked      = errors.New("account is blocked")
)
