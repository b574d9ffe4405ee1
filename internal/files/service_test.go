package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/FileDrop/internal/naming"
	"github.com/dharsanguruparan/FileDrop/internal/storage"
)

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	dir, err := storage.New(filepath.Join(t.TempDir(), "uploads"), naming.PolicySuffix)
	require.NoError(t, err)
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return NewService(dir, opts)
}

type filePart struct {
	field, name, body string
}

func multipartReader(t *testing.T, parts ...filePart) *multipart.Reader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.name == "" {
			require.NoError(t, mw.WriteField(p.field, p.body))
			continue
		}
		w, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return multipart.NewReader(&buf, mw.Boundary())
}

func dirNames(t *testing.T, s *Service) []string {
	t.Helper()
	entries, err := os.ReadDir(s.Directory().Root())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type brokenReader struct{ after int }

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), b.after)
	for i := range p[:n] {
		p[i] = 'x'
	}
	b.after -= n
	return n, nil
}

func TestSave_SizeMatchesDiskAndRoundTrips(t *testing.T) {
	s := newService(t, Options{})
	payload := bytes.Repeat([]byte("0123456789"), 10_000)

	file, err := s.Save(context.Background(), bytes.NewReader(payload), "report.pdf", "application/pdf")
	require.NoError(t, err)

	onDisk, err := os.ReadFile(filepath.Join(s.Directory().Root(), file.Name))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)
	assert.EqualValues(t, len(onDisk), file.Size)
	assert.Equal(t, "report.pdf", file.OriginalName)
	assert.Equal(t, "/uploads/"+file.Name, file.Path)
	assert.Equal(t, "application/pdf", file.Type)
	assert.Equal(t, "100 kB", file.FormattedSize)
}

func TestSave_InfersTypeWhenNotDeclared(t *testing.T) {
	s := newService(t, Options{})

	file, err := s.Save(context.Background(), strings.NewReader("{}"), "data.json", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "application/json", file.Type)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	file, err = s.Save(context.Background(), bytes.NewReader(png), "picture", "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.Type)
}

func TestSave_EmptyFileIsAccepted(t *testing.T) {
	s := newService(t, Options{})

	file, err := s.Save(context.Background(), strings.NewReader(""), "empty.txt", "text/plain")
	require.NoError(t, err)
	assert.Zero(t, file.Size)
	assert.Equal(t, "0 B", file.FormattedSize)
}

func TestSave_CeilingRemovesPartialFile(t *testing.T) {
	s := newService(t, Options{MaxFileSize: 10})

	_, err := s.Save(context.Background(), strings.NewReader(strings.Repeat("a", 11)), "big.bin", "")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, dirNames(t, s))

	file, err := s.Save(context.Background(), strings.NewReader(strings.Repeat("a", 10)), "fits.bin", "")
	require.NoError(t, err)
	assert.EqualValues(t, 10, file.Size)
}

func TestSave_ReadFailureRemovesPartialFile(t *testing.T) {
	s := newService(t, Options{})

	_, err := s.Save(context.Background(), &brokenReader{after: 64 * 1024}, "cut.bin", "")
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Empty(t, dirNames(t, s))
}

func TestSave_CancelledContext(t *testing.T) {
	s := newService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, strings.NewReader("data"), "late.txt", "")
	assert.Error(t, err)
	assert.Empty(t, dirNames(t, s))
}

func TestSave_TraversalNameIsSanitized(t *testing.T) {
	s := newService(t, Options{})

	file, err := s.Save(context.Background(), strings.NewReader("root:x"), "../../etc/passwd", "")
	require.NoError(t, err)
	assert.Equal(t, "passwd", file.OriginalName)
	assert.NotContains(t, file.Name, "/")
	assert.NotContains(t, file.Name, "..")

	_, err = os.Stat(filepath.Join(s.Directory().Root(), file.Name))
	assert.NoError(t, err)
}

func TestUploadOne(t *testing.T) {
	s := newService(t, Options{})
	mr := multipartReader(t,
		filePart{field: "note", body: "ignored"},
		filePart{field: "file", name: "hello.txt", body: "hello"},
		filePart{field: "file", name: "second.txt", body: "ignored"},
	)

	file, err := s.UploadOne(context.Background(), mr)
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", file.OriginalName)
	assert.EqualValues(t, 5, file.Size)
	assert.Len(t, dirNames(t, s), 1)
}

func TestUploadOne_NoFile(t *testing.T) {
	s := newService(t, Options{})
	mr := multipartReader(t, filePart{field: "note", body: "just text"})

	_, err := s.UploadOne(context.Background(), mr)
	assert.ErrorIs(t, err, ErrNoFileProvided)
	assert.Empty(t, dirNames(t, s))
}

func TestUploadOne_WrongFieldIsNoFile(t *testing.T) {
	s := newService(t, Options{})
	mr := multipartReader(t, filePart{field: "files", name: "a.txt", body: "a"})

	_, err := s.UploadOne(context.Background(), mr)
	assert.ErrorIs(t, err, ErrNoFileProvided)
}

func TestUploadOne_MalformedBody(t *testing.T) {
	s := newService(t, Options{})
	mr := multipart.NewReader(strings.NewReader("not a multipart body"), "boundary")

	_, err := s.UploadOne(context.Background(), mr)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestUploadMany_SameNameGivesDistinctEntries(t *testing.T) {
	s := newService(t, Options{})
	mr := multipartReader(t,
		filePart{field: "files", name: "dup.txt", body: "first"},
		filePart{field: "files", name: "dup.txt", body: "second"},
	)

	res, err := s.UploadMany(context.Background(), mr)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Empty(t, res.Failed)
	assert.NoError(t, res.FirstErr)
	assert.NotEqual(t, res.Files[0].Name, res.Files[1].Name)
	assert.Len(t, dirNames(t, s), 2)
}

func TestUploadMany_BestEffort(t *testing.T) {
	s := newService(t, Options{MaxFileSize: 8})
	mr := multipartReader(t,
		filePart{field: "files", name: "ok-1.txt", body: "small"},
		filePart{field: "files", name: "too-big.txt", body: "much too large"},
		filePart{field: "files", name: "ok-2.txt", body: "tiny"},
	)

	res, err := s.UploadMany(context.Background(), mr)
	require.NoError(t, err)

	require.Len(t, res.Files, 2)
	assert.Equal(t, "ok-1.txt", res.Files[0].OriginalName)
	assert.Equal(t, "ok-2.txt", res.Files[1].OriginalName)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "too-big.txt", res.Failed[0].OriginalName)
	assert.Equal(t, ErrFileTooLarge.Error(), res.Failed[0].Error)
	assert.ErrorIs(t, res.FirstErr, ErrFileTooLarge)
	assert.Len(t, dirNames(t, s), 2)
}

func TestUploadMany_BatchLimit(t *testing.T) {
	s := newService(t, Options{MaxBatchFiles: 2})
	mr := multipartReader(t,
		filePart{field: "files", name: "a.txt", body: "a"},
		filePart{field: "files", name: "b.txt", body: "b"},
		filePart{field: "files", name: "c.txt", body: "c"},
	)

	res, err := s.UploadMany(context.Background(), mr)
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "c.txt", res.Failed[0].OriginalName)
	assert.ErrorIs(t, res.FirstErr, ErrTooManyFiles)
}

func TestUploadMany_NoFiles(t *testing.T) {
	s := newService(t, Options{})
	mr := multipartReader(t, filePart{field: "file", name: "single.txt", body: "x"})

	_, err := s.UploadMany(context.Background(), mr)
	assert.ErrorIs(t, err, ErrNoFileProvided)
	assert.Empty(t, dirNames(t, s))
}

func writeWithMtime(t *testing.T, s *Service, name string, mtime time.Time) {
	t.Helper()
	p := filepath.Join(s.Directory().Root(), name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o640))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
}

func TestList_NewestFirstWithNameTieBreak(t *testing.T) {
	s := newService(t, Options{})
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	writeWithMtime(t, s, "old.txt", base.Add(-time.Hour))
	writeWithMtime(t, s, "b-tie.txt", base)
	writeWithMtime(t, s, "a-tie.txt", base)
	writeWithMtime(t, s, "new.txt", base.Add(time.Hour))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 4)

	names := make([]string, 0, len(list))
	for _, f := range list {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"new.txt", "a-tie.txt", "b-tie.txt", "old.txt"}, names)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i-1].UploadDate.Before(list[i].UploadDate))
	}
}

func TestList_Metadata(t *testing.T) {
	s := newService(t, Options{})
	stored := naming.WithToken("photo.png", "1728900000000-0a1b2c3d4e5f")
	mtime := time.Date(2026, 10, 14, 9, 5, 0, 0, time.UTC)
	writeWithMtime(t, s, stored, mtime)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	f := list[0]
	assert.Equal(t, stored, f.Name)
	assert.Equal(t, "photo.png", f.OriginalName)
	assert.Equal(t, "/uploads/"+stored, f.Path)
	assert.EqualValues(t, len(stored), f.Size)
	assert.Equal(t, "image/png", f.Type)
	assert.True(t, f.UploadDate.Equal(mtime))
	assert.Equal(t, "Oct 14, 2026 09:05", f.FormattedDate)
}

func TestList_UnknownTypeFallsBack(t *testing.T) {
	s := newService(t, Options{})
	p := filepath.Join(s.Directory().Root(), "blob.zzunknown")
	require.NoError(t, os.WriteFile(p, []byte{0x00, 0x01, 0x02}, 0o640))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "application/octet-stream", list[0].Type)
}

func TestList_Empty(t *testing.T) {
	s := newService(t, Options{})

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestList_DirectoryUnavailable(t *testing.T) {
	s := newService(t, Options{})
	root := s.Directory().Root()
	require.NoError(t, os.RemoveAll(root))
	require.NoError(t, os.WriteFile(root, []byte("not a dir"), 0o640))

	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestUploadThenList_RecoversOriginalName(t *testing.T) {
	s := newService(t, Options{})
	_, err := s.Save(context.Background(), strings.NewReader("%PDF-1.4"), "report.pdf", "")
	require.NoError(t, err)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "report.pdf", list[0].OriginalName)
}

func TestMessage(t *testing.T) {
	wrapped := errors.Join(ErrWriteFailure, errors.New("open /secret/path: permission denied"))
	assert.Equal(t, ErrWriteFailure.Error(), Message(wrapped))
	assert.Equal(t, "internal error", Message(errors.New("boom")))
}
