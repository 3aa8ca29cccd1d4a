// Package gcs provides a DocumentSource backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// Config captures the parameters required to use a GCS intake bucket.
type Config struct {
	Bucket        string
	IntakePrefix  string
	ArchivePrefix string
}

// Source reads gazette PDFs from the intake prefix of a bucket and moves
// them to the archive prefix once processed.
type Source struct {
	client        *storage.Client
	bucket        string
	intakePrefix  string
	archivePrefix string
}

// New creates a GCS-backed Source.
func New(client *storage.Client, cfg Config) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.IntakePrefix == "" {
		cfg.IntakePrefix = "unprocessed"
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "processed"
	}
	return &Source{
		client:        client,
		bucket:        cfg.Bucket,
		intakePrefix:  strings.Trim(cfg.IntakePrefix, "/"),
		archivePrefix: strings.Trim(cfg.ArchivePrefix, "/"),
	}, nil
}

// Fetch downloads the raw bytes for a document key.
func (s *Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("document key is required")
	}
	r, err := s.client.Bucket(s.bucket).Object(s.objectPath(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", key, auction.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// ListPending returns the document keys waiting under the intake prefix.
func (s *Source) ListPending(ctx context.Context) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.intakePrefix + "/"})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list intake objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, s.intakePrefix+"/")
		if name == "" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			continue
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// Archive copies the object to the archive prefix and deletes the intake
// copy. Callers treat failures as warnings, not run failures.
func (s *Source) Archive(ctx context.Context, key string) error {
	src := s.client.Bucket(s.bucket).Object(s.objectPath(key))
	dst := s.client.Bucket(s.bucket).Object(path.Join(s.archivePrefix, key))
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%s: %w", key, auction.ErrDocumentNotFound)
		}
		return fmt.Errorf("copy to archive: %w", err)
	}
	if err := src.Delete(ctx); err != nil {
		return fmt.Errorf("delete intake copy: %w", err)
	}
	return nil
}

func (s *Source) objectPath(key string) string {
	return path.Join(s.intakePrefix, key)
}
