package audio

import "errors"

func (e *DecodeError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Format != "" {
		msg = string(e.Format) + " " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// DecodeError represents a recording that could not be turned into PCM
type DecodeError struct {
	Format  Format `json:"format"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Decode error codes
const (
	ErrCodeInvalidFormat     = "INVALID_FORMAT"
	ErrCodeDecoding          = "DECODING_FAILED"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeEmptyAudio        = "EMPTY_AUDIO"
)

// NewDecodeError creates a new decode error
func NewDecodeError(format Format, code, message string, cause error) *DecodeError {
	return &DecodeError{
		Format:  format,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsDecodeError reports whether err (or anything it wraps) is a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
