package files

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/dharsanguruparan/FileDrop/internal/model"
)

// Multipart field names accepted by the upload routes.
const (
	SingleField = "file"
	BatchField  = "files"
)

// BatchResult collects the outcome of a multi file upload. Each part succeeds
// or fails on its own; stored siblings are never rolled back.
type BatchResult struct {
	Files  []model.StoredFile
	Failed []model.FailedFile
	// FirstErr is the error of the first failed part, nil when all succeeded.
	FirstErr error
}

// UploadOne stores the first file part named SingleField. Other fields are
// skipped and parts after the first file are ignored.
func (s *Service) UploadOne(ctx context.Context, mr *multipart.Reader) (*model.StoredFile, error) {
	for {
		part, err := mr.NextPart()
		// NextPart returns a bare io.EOF only after the closing boundary; a
		// wrapped EOF means the body was cut short.
		if err == io.EOF {
			return nil, ErrNoFileProvided
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if part.FormName() != SingleField || part.FileName() == "" {
			part.Close()
			continue
		}
		file, err := s.Save(ctx, part, part.FileName(), part.Header.Get("Content-Type"))
		part.Close()
		return file, err
	}
}

// UploadMany stores every file part named BatchField, up to the configured
// batch limit. Parts beyond the limit are reported as failed.
func (s *Service) UploadMany(ctx context.Context, mr *multipart.Reader) (*BatchResult, error) {
	res := &BatchResult{Files: make([]model.StoredFile, 0)}
	seen := 0
	fail := func(name string, err error) {
		if res.FirstErr == nil {
			res.FirstErr = err
		}
		res.Failed = append(res.Failed, model.FailedFile{OriginalName: name, Error: Message(err)})
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if seen == 0 {
				return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
			}
			// The stream is unusable past this point; keep what was stored.
			fail("", fmt.Errorf("%w: %v", ErrBadRequest, err))
			break
		}
		if part.FormName() != BatchField || part.FileName() == "" {
			part.Close()
			continue
		}
		seen++
		name := part.FileName()
		if seen > s.maxBatchFiles {
			part.Close()
			fail(name, fmt.Errorf("%w: limit is %d", ErrTooManyFiles, s.maxBatchFiles))
			continue
		}
		file, err := s.Save(ctx, part, name, part.Header.Get("Content-Type"))
		part.Close()
		if err != nil {
			s.log.Warn("batch part failed", "original_name", name, "error", err)
			fail(name, err)
			continue
		}
		res.Files = append(res.Files, *file)
	}
	if seen == 0 {
		return nil, ErrNoFileProvided
	}
	return res, nil
}
