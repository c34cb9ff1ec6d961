package validators

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

type groupCountRequest struct {
	Count int    `json:"count" validate:"min=0,max=50"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestDecodeJSONBody(t *testing.T) {
	var req groupCountRequest
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"count":3}`))
	if err := DecodeJSONBody(httptest.NewRecorder(), r, &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Count != 3 {
		t.Fatalf("expected 3 got %d", req.Count)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	tests := map[string]struct {
		body string
		code pkgerrors.Code
	}{
		"unknown field": {`{"count":1,"extra":true}`, pkgerrors.CodeValidation},
		"bad email":     {`{"count":1,"email":"nope"}`, pkgerrors.CodeValidation},
		"too large":     {`{"email":"` + strings.Repeat("a", int(MaxJSONBody)) + `"}`, pkgerrors.CodePayloadTooLarge},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var req groupCountRequest
			r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tc.body))
			err := DecodeJSONBody(httptest.NewRecorder(), r, &req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.code {
				t.Fatalf("expected %s got %v", tc.code, err)
			}
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	err := ValidateStruct(&groupCountRequest{Count: 99})
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	if details["count"] != "must be at most 50" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}

func TestParseMultipartAndFiles(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("document", "scan.pdf")
	_, _ = fw.Write([]byte("%PDF-1.4"))
	_ = mw.WriteField("deadline", "2026-12-01")
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	if err := ParseMultipart(httptest.NewRecorder(), r, 1<<20); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fh := FormFile(r, "document"); fh == nil || fh.Filename != "scan.pdf" {
		t.Fatalf("expected document file, got %+v", fh)
	}
	if FormFile(r, "missing") != nil {
		t.Fatal("expected no file for missing field")
	}
	if r.FormValue("deadline") != "2026-12-01" {
		t.Fatal("expected form value")
	}
}

func TestParseMultipartTooLarge(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("document", "big.pdf")
	_, _ = fw.Write(bytes.Repeat([]byte("x"), 4096))
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	err := ParseMultipart(httptest.NewRecorder(), r, 1024)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected a typed error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodePayloadTooLarge && typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}
