package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/kirillkom/docprep/internal/core/domain"
)

func TestObjectNameWithPrefix(t *testing.T) {
	s := &Storage{prefix: "releases"}
	if got := s.objectName("agency/1/doc.pdf"); got != "releases/agency/1/doc.pdf" {
		t.Fatalf("objectName() = %q", got)
	}
	if got := s.objectName(""); got != "releases/" {
		t.Fatalf("objectName(\"\") = %q", got)
	}
	if got := s.keyOf("releases/agency/1/doc.pdf"); got != "agency/1/doc.pdf" {
		t.Fatalf("keyOf() = %q", got)
	}

	bare := &Storage{}
	if got := bare.objectName("/a/b.txt"); got != "a/b.txt" {
		t.Fatalf("objectName() = %q", got)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a/manifest.yaml": "application/yaml",
		"a/doc.txt":       "text/plain; charset=utf-8",
		"a/doc.pdf":       "application/pdf",
		"a/blob.unknown1": "application/octet-stream",
	}
	for key, want := range cases {
		if got := contentType(key); got != want {
			t.Fatalf("contentType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestClassifyGCSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, retryable: true},
		{name: "server error", err: fmt.Errorf("write: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), retryable: true},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, retryable: false},
		{name: "missing object", err: storage.ErrObjectNotExist, retryable: false},
		{name: "canceled", err: context.Canceled, retryable: false},
		{name: "other", err: errors.New("boom"), retryable: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyGCSError(tc.err).Retryable; got != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", got, tc.retryable)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded("gcs write", &googleapi.Error{Code: http.StatusBadGateway})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if err := wrapTemporaryIfNeeded("gcs write", &googleapi.Error{Code: http.StatusForbidden}); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("forbidden must stay permanent")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(nil, Options{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
