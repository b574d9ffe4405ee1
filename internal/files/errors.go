package files

import "errors"

var (
	ErrNoFileProvided       = errors.New("no file provided")
	ErrBadRequest           = errors.New("malformed upload request")
	ErrTooManyFiles         = errors.New("too many files in one request")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrWriteFailure         = errors.New("failed to write file")
	ErrDirectoryUnavailable = errors.New("failed to retrieve files")
)

var publicErrors = []error{
	ErrNoFileProvided,
	ErrBadRequest,
	ErrTooManyFiles,
	ErrFileTooLarge,
	ErrWriteFailure,
	ErrDirectoryUnavailable,
}

// Message returns the client facing text for err. Wrapped causes such as
// filesystem paths are not included.
func Message(err error) string {
	for _, target := range publicErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "internal error"
}
