package services

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrAuth               = errors.New("authentication failed")
	ErrSessionNotFound    = errors.Join(ErrAuth, errors.New("session not found"))
	ErrNotFound           = errors.New("not found")
	ErrChallengeNotFound  = errors.Join(ErrNotFound, errors.New("challenge not found"))
	ErrNoRewardsAvailable = errors.New("no rewards to claim")
	ErrExternalService    = errors.New("external service error")
)

var errInvalidWallet = errors.New("wallet must be a base58 encoded 32-byte public key")
