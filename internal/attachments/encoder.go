// Package attachments gates user files against a type allow-list and a size
// limit and then encodes them as base64 for JSON transport.
package attachments

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	sniffBytes       = 3072
	defaultChunkSize = 48 * 1024 // multiple of 3 so chunks never carry padding
	maxParallel      = 4
)

// Attachment is an encoded file ready to be written to a record sink.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Data     string `json:"data"`
}

// Policy is the per-form gate.
type Policy struct {
	AllowedTypes []string
	MaxBytes     int64
}

type Encoder struct {
	allowed   map[string]struct{}
	maxBytes  int64
	chunkSize int
}

func NewEncoder(policy Policy) (*Encoder, error) {
	if policy.MaxBytes <= 0 {
		return nil, errors.New("attachment max bytes must be positive")
	}
	allowed := make(map[string]struct{}, len(policy.AllowedTypes))
	for _, raw := range policy.AllowedTypes {
		if t := normalizeType(raw); t != "" {
			allowed[t] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil, errors.New("attachment allow-list is empty")
	}
	return &Encoder{allowed: allowed, maxBytes: policy.MaxBytes, chunkSize: defaultChunkSize}, nil
}

// MaxBytes reports the inclusive size limit.
func (e *Encoder) MaxBytes() int64 {
	return e.maxBytes
}

// Check validates size and type without encoding. Only the sniffing window is read.
func (e *Encoder) Check(src Source) (string, error) {
	if err := e.checkSize(src, src.Size); err != nil {
		return "", err
	}
	rc, err := open(src)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	head, err := readHead(rc)
	if err != nil {
		return "", &FileError{File: src.name(), Err: err}
	}
	return e.resolveType(src, head)
}

// Encode validates then base64-encodes the whole file.
func (e *Encoder) Encode(ctx context.Context, src Source) (Attachment, error) {
	if err := e.checkSize(src, src.Size); err != nil {
		return Attachment{}, err
	}
	rc, err := open(src)
	if err != nil {
		return Attachment{}, err
	}
	defer rc.Close()

	head, err := readHead(rc)
	if err != nil {
		return Attachment{}, &FileError{File: src.name(), Err: err}
	}
	mimeType, err := e.resolveType(src, head)
	if err != nil {
		return Attachment{}, err
	}

	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(rc, e.maxBytes+1-int64(len(head))))
	data, n, err := e.encodeChunked(ctx, body, src.Size)
	if err != nil {
		return Attachment{}, &FileError{File: src.name(), Err: err}
	}
	if err := e.checkSize(src, n); err != nil {
		return Attachment{}, err
	}
	return Attachment{
		Filename: sanitizeFilename(src.Filename),
		MimeType: mimeType,
		Size:     n,
		Data:     data,
	}, nil
}

// EncodeAll checks every file first and reports all rejections together;
// nothing is encoded unless every file passes.
func (e *Encoder) EncodeAll(ctx context.Context, sources []Source) ([]Attachment, error) {
	var errs error
	for _, src := range sources {
		if _, err := e.Check(src); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}

	out := make([]Attachment, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, src := range sources {
		g.Go(func() error {
			att, err := e.Encode(gctx, src)
			if err != nil {
				return err
			}
			out[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rejections splits an EncodeAll error into its per-file errors.
func Rejections(err error) []*FileError {
	var out []*FileError
	for _, e := range multierr.Errors(err) {
		var fe *FileError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out
}

func (e *Encoder) checkSize(src Source, size int64) error {
	if size > e.maxBytes {
		return &FileError{File: src.name(), Size: size, Limit: e.maxBytes, Err: ErrTooLarge}
	}
	return nil
}

func (e *Encoder) resolveType(src Source, head []byte) (string, error) {
	if len(head) == 0 {
		return "", &FileError{File: src.name(), Err: ErrEmpty}
	}
	detected := mimetype.Detect(head)
	declared := normalizeType(src.DeclaredType)
	if declared == "" || declared == "application/octet-stream" {
		declared = normalizeType(detected.String())
	}
	if _, ok := e.allowed[declared]; !ok {
		return "", &FileError{File: src.name(), Type: declared, Err: ErrUnsupportedType}
	}
	if !detected.Is(declared) {
		return "", &FileError{File: src.name(), Type: detected.String(), Err: fmt.Errorf("%w: content does not match %s", ErrUnsupportedType, declared)}
	}
	return declared, nil
}

func (e *Encoder) encodeChunked(ctx context.Context, r io.Reader, sizeHint int64) (string, int64, error) {
	var sb strings.Builder
	if sizeHint > 0 && sizeHint <= e.maxBytes {
		sb.Grow(base64.StdEncoding.EncodedLen(int(sizeHint)))
	}
	buf := make([]byte, e.chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return "", total, err
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			total += int64(n)
			if total > e.maxBytes {
				return "", total, ErrTooLarge
			}
			sb.WriteString(base64.StdEncoding.EncodeToString(buf[:n]))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", total, err
		}
	}
	return sb.String(), total, nil
}

func open(src Source) (io.ReadCloser, error) {
	if src.Open == nil {
		return nil, &FileError{File: src.name(), Err: errors.New("file cannot be opened")}
	}
	rc, err := src.Open()
	if err != nil {
		return nil, &FileError{File: src.name(), Err: err}
	}
	return rc, nil
}

func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return head[:n], nil
}

func normalizeType(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return ""
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return "image/jpeg"
	}
	return mediaType
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "attachment"
	}
	return name
}
