package attachments

import (
	"errors"
	"fmt"

	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("file is empty")
)

// FileError names the offending file so multi-file forms can point at it.
type FileError struct {
	File  string
	Type  string
	Size  int64
	Limit int64
	Err   error
}

func (e *FileError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTooLarge):
		return fmt.Sprintf("%s: %v (%d bytes, limit %d)", e.File, e.Err, e.Size, e.Limit)
	case errors.Is(e.Err, ErrUnsupportedType) && e.Type != "":
		return fmt.Sprintf("%s: %v %q", e.File, e.Err, e.Type)
	default:
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// PublicError maps encoder failures onto API error codes, naming every
// rejected file in the details.
func PublicError(err error) error {
	if err == nil {
		return nil
	}
	rejected := Rejections(err)
	if len(rejected) == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "attachment could not be read")
	}
	files := make([]map[string]any, 0, len(rejected))
	code := pkgerrors.CodeValidation
	for _, fe := range rejected {
		entry := map[string]any{"file": fe.File, "reason": fe.Err.Error()}
		switch {
		case errors.Is(fe.Err, ErrTooLarge):
			entry["limit_bytes"] = fe.Limit
			code = pkgerrors.CodePayloadTooLarge
		case errors.Is(fe.Err, ErrUnsupportedType):
			if code != pkgerrors.CodePayloadTooLarge {
				code = pkgerrors.CodeUnsupportedMediaType
			}
		}
		files = append(files, entry)
	}
	return pkgerrors.Wrap(code, err, rejected[0].Error()).WithDetails(map[string]any{"files": files})
}
