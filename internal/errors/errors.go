package errors

import (
	"errors"
	"fmt"
)

var (
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrSecretRetrievalFailed = errors.New("secret retrieval failed")
	ErrQueuePublishFailed    = errors.New("queue publish failed")
	ErrCounterUpdateFailed   = errors.New("counter update failed")
)

func wrap(sentinel error, format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, a...))
}

func NewStorageUnavailable(format string, a ...interface{}) error {
	return wrap(ErrStorageUnavailable, format, a...)
}

func NewSecretRetrievalFailed(format string, a ...interface{}) error {
	return wrap(ErrSecretRetrievalFailed, format, a...)
}

func NewQueuePublishFailed(format string, a ...interface{}) error {
	return wrap(ErrQueuePublishFailed, format, a...)
}

// NewCounterUpdateFailed keeps cause in the chain so callers can still tell
// a storage outage from a missing credential.
func NewCounterUpdateFailed(cause error) error {
	return fmt.Errorf("%w: %w", ErrCounterUpdateFailed, cause)
}

func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func IsSecretRetrievalFailed(err error) bool {
	return errors.Is(err, ErrSecretRetrievalFailed)
}

func IsQueuePublishFailed(err error) bool {
	return errors.Is(err, ErrQueuePublishFailed)
}

func IsCounterUpdateFailed(err error) bool {
	return errors.Is(err, ErrCounterUpdateFailed)
}
