package validators

import (
	"errors"
	"mime/multipart"
	"net/http"

	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

const multipartMemory = 32 << 20

// ParseMultipart reads a multipart form capped at maxBytes. A form already
// parsed further up the chain is reused.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if r.MultipartForm != nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "upload too large")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormFiles returns the files posted under field, in order.
func FormFiles(r *http.Request, field string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[field]
}

// FormFile returns the first file posted under field, or nil.
func FormFile(r *http.Request, field string) *multipart.FileHeader {
	files := FormFiles(r, field)
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
