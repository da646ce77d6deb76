package stt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrResourceExhausted marks a failure caused by the model running out of
// device or host memory. A larger model on a different allocation path may
// still succeed on the same audio.
var ErrResourceExhausted = errors.New("stt: resource exhausted")

var exhaustionMarkers = []string{
	"out of memory",
	"failed to allocate",
	"cudamalloc",
	"not enough space",
	"bad_alloc",
}

// IsResourceExhausted reports whether err belongs to the out-of-memory class.
func IsResourceExhausted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrResourceExhausted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range exhaustionMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Classify wraps err with ErrResourceExhausted when it belongs to the
// out-of-memory class and is not already tagged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrResourceExhausted) || !IsResourceExhausted(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
}
