package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/extract"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/logging"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/storage"
)

// archiveFileName is the local name of the downloaded workbook.
const archiveFileName = "input.twbx"

// Extractor turns a local archive into CSV files. *extract.Pipeline
// implements it.
type Extractor interface {
	Extract(ctx context.Context, archivePath, unpackDir, outputDir, workbook string) (*extract.Manifest, error)
}

// Options configures a Service.
type Options struct {
	InputBucket  string
	OutputBucket string

	// WorkBase is the directory job work dirs are created under.
	// Empty resolves through ResolveWorkBase.
	WorkBase string

	// JobTimeout bounds a whole job. Zero means no bound.
	JobTimeout time.Duration

	// Limiter bounds concurrent jobs. Nil means no bound.
	Limiter *JobLimiter
}

// OutputFile is one CSV produced by a job.
type OutputFile struct {
	Filename string `json:"filename"`
	BlobPath string `json:"blob_path"`
	URL      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

// JobResult is the outcome of a completed job. Tables lists every table
// found in the extract, exported or not.
type JobResult struct {
	JobID       string          `json:"job_id"`
	Workbook    string          `json:"workbook"`
	OutputFiles []OutputFile    `json:"output_files"`
	Tables      []extract.Entry `json:"tables"`
}

// Service runs extraction jobs against an object store.
type Service struct {
	store     storage.ObjectStore
	extractor Extractor
	opts      Options
}

// NewService creates a Service. Both buckets are required.
func NewService(store storage.ObjectStore, extractor Extractor, opts Options) (*Service, error) {
	if store == nil {
		return nil, errs.Errorf(errs.KindStorageConfig, "core.new", "object store is required")
	}
	if opts.InputBucket == "" || opts.OutputBucket == "" {
		return nil, errs.Errorf(errs.KindStorageConfig, "core.new", "input and output containers are required")
	}
	opts.WorkBase = ResolveWorkBase(opts.WorkBase)

	return &Service{store: store, extractor: extractor, opts: opts}, nil
}

// WorkBase returns the directory job work dirs are created under.
func (s *Service) WorkBase() string { return s.opts.WorkBase }

// Extract downloads the archive at blobPath from the input bucket, exports
// its tables and uploads the CSV files to the output bucket.
//
// Archive, connection, download and bucket failures are returned. A failed
// upload of one file is reported on its OutputFile.
func (s *Service) Extract(ctx context.Context, blobPath string) (*JobResult, error) {
	blobPath = strings.TrimLeft(strings.TrimSpace(blobPath), "/")
	if blobPath == "" {
		return nil, errs.Errorf(errs.KindInvalidRequest, "core.extract", "blob_path is required")
	}

	if l := s.opts.Limiter; l != nil {
		if err := l.Acquire(ctx); err != nil {
			if errors.Is(err, ErrTooManyJobs) {
				return nil, errs.E(errs.KindBusy, "core.extract", err)
			}
			return nil, err
		}
		defer l.Release()
	}

	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}

	jobID := uuid.New().String()
	workbook := WorkbookName(blobPath)
	logger := logging.WithFields(ctx, "job_id", jobID, "blob_path", blobPath, "workbook", workbook)
	start := time.Now()

	workDir := filepath.Join(s.opts.WorkBase, jobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove work dir", "dir", workDir, "error", err)
		}
	}()

	logger.Info("extraction job started")

	archivePath := filepath.Join(workDir, archiveFileName)
	if err := s.store.Download(ctx, s.opts.InputBucket, blobPath, archivePath); err != nil {
		return nil, errs.E(errs.KindDownload, "core.download", err)
	}

	manifest, err := s.extractor.Extract(ctx, archivePath,
		filepath.Join(workDir, "unpacked"), filepath.Join(workDir, "extracted"), workbook)
	if err != nil {
		return nil, err
	}

	result := &JobResult{
		JobID:       jobID,
		Workbook:    workbook,
		OutputFiles: []OutputFile{},
		Tables:      manifest.Tables,
	}

	if len(manifest.CSVFiles) > 0 {
		if err := s.store.EnsureBucket(ctx, s.opts.OutputBucket); err != nil {
			return nil, errs.E(errs.KindUpload, "core.ensure_bucket", err)
		}
	}

	failed := 0
	for _, csvPath := range manifest.CSVFiles {
		out := s.upload(ctx, workbook, csvPath)
		if out.Error != "" {
			failed++
			logger.Error("upload failed", "file", out.Filename, "error", out.Error)
		}
		result.OutputFiles = append(result.OutputFiles, out)
	}

	logger.Info("extraction job completed",
		"tables", len(manifest.Tables),
		"exported", manifest.ExportedCount(),
		"table_errors", manifest.FailedCount(),
		"uploaded", len(result.OutputFiles)-failed,
		"upload_errors", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) upload(ctx context.Context, workbook, csvPath string) OutputFile {
	filename := filepath.Base(csvPath)
	out := OutputFile{Filename: filename, BlobPath: BlobPath(workbook, filename)}

	url, err := s.store.Upload(ctx, csvPath, s.opts.OutputBucket, out.BlobPath)
	if err != nil {
		out.Error = errs.E(errs.KindUpload, "core.upload", err).Error()
		return out
	}
	out.URL = url
	return out
}
