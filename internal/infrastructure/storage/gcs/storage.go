package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/infrastructure/resilience"
)

// Storage keeps documents as objects in one bucket, optionally below a key prefix.
type Storage struct {
	client   *storage.Client
	bucket   *storage.BucketHandle
	prefix   string
	executor *resilience.Executor
}

type Options struct {
	Bucket   string
	Prefix   string
	Executor *resilience.Executor
}

// New wraps an existing client; the caller owns the client lifetime.
func New(client *storage.Client, opts Options) (*Storage, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "gcs storage", errors.New("bucket is required"))
	}
	return &Storage{
		client:   client,
		bucket:   client.Bucket(opts.Bucket),
		prefix:   strings.Trim(opts.Prefix, "/"),
		executor: opts.Executor,
	}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	payload, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	name := s.objectName(key)
	err = s.executor.Execute(ctx, "gcs.write", func(ctx context.Context) error {
		writer := s.bucket.Object(name).NewWriter(ctx)
		writer.ContentType = contentType(key)
		if _, err := io.Copy(writer, bytes.NewReader(payload)); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write gcs object %s: %w", name, err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("finalize gcs object %s: %w", name, err)
		}
		return nil
	}, classifyGCSError)
	return wrapTemporaryIfNeeded("gcs write", err)
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	name := s.objectName(key)
	rc, err := resilience.Do(ctx, s.executor, "gcs.read", func(ctx context.Context) (*storage.Reader, error) {
		return s.bucket.Object(name).NewReader(ctx)
	}, classifyGCSError)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open "+key, err)
		}
		return nil, wrapTemporaryIfNeeded("gcs read", fmt.Errorf("open gcs object %s: %w", name, err))
	}
	return rc, nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := resilience.Do(ctx, s.executor, "gcs.list", func(ctx context.Context) ([]string, error) {
		it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.objectName(prefix)})
		var out []string
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return out, nil
			}
			if err != nil {
				return nil, fmt.Errorf("list gcs objects: %w", err)
			}
			if strings.HasSuffix(attrs.Name, "/") {
				continue
			}
			out = append(out, s.keyOf(attrs.Name))
		}
	}, classifyGCSError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("gcs list", err)
	}
	return keys, nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := resilience.Do(ctx, s.executor, "gcs.attrs", func(ctx context.Context) (*storage.ObjectAttrs, error) {
		return s.bucket.Object(s.objectName(key)).Attrs(ctx)
	}, classifyGCSError)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, wrapTemporaryIfNeeded("gcs attrs", err)
	}
	return true, nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	err := s.executor.Execute(ctx, "gcs.delete", func(ctx context.Context) error {
		return s.bucket.Object(s.objectName(key)).Delete(ctx)
	}, classifyGCSError)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return wrapTemporaryIfNeeded("gcs delete", err)
}

func (s *Storage) objectName(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		return key
	}
	if key == "" {
		return s.prefix + "/"
	}
	return s.prefix + "/" + key
}

func (s *Storage) keyOf(name string) string {
	if s.prefix == "" {
		return name
	}
	return strings.TrimPrefix(name, s.prefix+"/")
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
