// Package files implements the upload and listing operations on top of the
// storage directory: streaming parts to disk and turning directory entries
// into StoredFile metadata.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/dharsanguruparan/FileDrop/internal/model"
	"github.com/dharsanguruparan/FileDrop/internal/naming"
	"github.com/dharsanguruparan/FileDrop/internal/storage"
)

const (
	// DateLayout renders upload dates such as "Oct 14, 2026 15:04".
	DateLayout = "Jan 02, 2006 15:04"

	defaultMaxBatchFiles = 100
	copyBufferSize       = 32 * 1024
	sniffSize            = 512
	octetStream          = "application/octet-stream"
)

// Options tune a Service. The zero value is usable: unlimited file size,
// 100 files per batch, server local time for formatted dates.
type Options struct {
	MaxFileSize   int64
	MaxBatchFiles int
	Location      *time.Location
	Logger        *slog.Logger
}

// Service handles storing uploads and listing stored files.
type Service struct {
	dir           *storage.Directory
	maxFileSize   int64
	maxBatchFiles int
	loc           *time.Location
	log           *slog.Logger
}

// NewService builds a Service over dir.
func NewService(dir *storage.Directory, opts Options) *Service {
	if opts.MaxFileSize < 0 {
		opts.MaxFileSize = 0
	}
	if opts.MaxBatchFiles <= 0 {
		opts.MaxBatchFiles = defaultMaxBatchFiles
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		dir:           dir,
		maxFileSize:   opts.MaxFileSize,
		maxBatchFiles: opts.MaxBatchFiles,
		loc:           opts.Location,
		log:           opts.Logger,
	}
}

// Directory exposes the underlying storage directory.
func (s *Service) Directory() *storage.Directory { return s.dir }

// Save streams r into a new stored file. The payload is copied through a
// fixed buffer, never held in memory as a whole.
func (s *Service) Save(ctx context.Context, r io.Reader, originalName, declaredType string) (*model.StoredFile, error) {
	dst, name, err := s.dir.Create(originalName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	fail := func(err error) (*model.StoredFile, error) {
		dst.Close()
		if rmErr := s.dir.Remove(name); rmErr != nil {
			s.log.Warn("remove partial upload", "name", name, "error", rmErr)
		}
		return nil, err
	}

	var sniff []byte
	buf := make([]byte, copyBufferSize)
	src := &contextReader{ctx: ctx, r: r}
	// written tracks bytes persisted so we can enforce the configured limit.
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written += int64(n)
			if s.maxFileSize > 0 && written > s.maxFileSize {
				return fail(ErrFileTooLarge)
			}
			if len(sniff) < sniffSize {
				chunk := min(n, sniffSize-len(sniff))
				sniff = append(sniff, buf[:chunk]...)
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return fail(fmt.Errorf("%w: %v", ErrWriteFailure, err))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			var maxErr *http.MaxBytesError
			if errors.As(readErr, &maxErr) {
				return fail(ErrFileTooLarge)
			}
			return fail(fmt.Errorf("%w: read upload: %v", ErrBadRequest, readErr))
		}
	}
	if err := dst.Close(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrWriteFailure, err))
	}

	info, err := s.dir.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	typ := strings.TrimSpace(declaredType)
	if typ == "" || typ == octetStream {
		typ = typeByExtension(name)
	}
	if typ == "" {
		typ = mimetype.Detect(sniff).String()
	}
	s.log.Info("file stored", "name", name, "size", info.Size(), "type", typ)
	file := s.describe(info, typ)
	return &file, nil
}

// List returns every stored file, newest first. Ties on the modification
// time are ordered by stored name.
func (s *Service) List(ctx context.Context) ([]model.StoredFile, error) {
	entries, err := s.dir.Entries()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	out := make([]model.StoredFile, 0, len(entries))
	for _, info := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, s.describe(info, s.detectType(info.Name())))
	}
	sortNewestFirst(out)
	return out, nil
}

// describe derives display metadata from a stat result.
func (s *Service) describe(info fs.FileInfo, typ string) model.StoredFile {
	name := info.Name()
	mod := info.ModTime()
	return model.StoredFile{
		Name:          name,
		OriginalName:  naming.OriginalName(name),
		Path:          PublicPath(name),
		Size:          info.Size(),
		FormattedSize: humanize.Bytes(uint64(info.Size())),
		Type:          typ,
		UploadDate:    mod,
		FormattedDate: mod.In(s.loc).Format(DateLayout),
	}
}

// detectType infers a MIME type from the extension, falling back to sniffing
// the head of the file.
func (s *Service) detectType(name string) string {
	if typ := typeByExtension(name); typ != "" {
		return typ
	}
	f, _, err := s.dir.Open(name)
	if err != nil {
		return octetStream
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return octetStream
	}
	return mt.String()
}

func sortNewestFirst(files []model.StoredFile) {
	slices.SortStableFunc(files, func(a, b model.StoredFile) int {
		if c := b.UploadDate.Compare(a.UploadDate); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// PublicPath maps a stored name onto its download URL path.
func PublicPath(name string) string {
	return model.PublicPrefix + url.PathEscape(name)
}

// ContentType returns the MIME type used when serving a stored file.
func ContentType(name string) string {
	if typ := typeByExtension(name); typ != "" {
		return typ
	}
	return octetStream
}

func typeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

// contextReader stops a copy once the request context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
