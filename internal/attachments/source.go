package attachments

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Source is a user-selected file that has not been read yet.
type Source struct {
	// Label identifies the file to the user, e.g. "member 2 document".
	// Filename is used when empty.
	Label        string
	Filename     string
	DeclaredType string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

func (s Source) name() string {
	if s.Label != "" {
		return s.Label
	}
	if s.Filename != "" {
		return s.Filename
	}
	return "attachment"
}

// FromMultipart adapts an uploaded form file.
func FromMultipart(label string, fh *multipart.FileHeader) Source {
	return Source{
		Label:        label,
		Filename:     fh.Filename,
		DeclaredType: fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes adapts an in-memory file.
func FromBytes(label, filename, declaredType string, data []byte) Source {
	return Source{
		Label:        label,
		Filename:     filename,
		DeclaredType: declaredType,
		Size:         int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
