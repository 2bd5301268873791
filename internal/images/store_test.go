package images

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	for _, name := range []string{"a.png", "a.JPG", "photo.jpeg", "x.y.gif", "pic.WebP"} {
		assert.True(t, Validate(name), name)
	}
	for _, name := range []string{"", "png", "photo.exe", "photo.png.exe", "photo.", "photo.svg"} {
		assert.False(t, Validate(name), name)
	}
}

var storedName = regexp.MustCompile(`^[0-9a-f]{32}\.(png|jpg|jpeg|gif|webp)$`)

func TestSave_WritesUnderRandomName(t *testing.T) {
	s := newStore(t)

	name, err := s.Save("Holiday Photo.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Regexp(t, storedName, name)
	assert.True(t, strings.HasSuffix(name, ".jpg"), "extension is lowercased")

	data, err := os.ReadFile(filepath.Join(s.Root(), name))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	other, err := s.Save("Holiday Photo.JPG", strings.NewReader("again"))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}

func TestSave_RejectsInvalid(t *testing.T) {
	s := newStore(t)

	for _, name := range []string{"", "photo.exe", "noext"} {
		got, err := s.Save(name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidImage, name)
		assert.Empty(t, got)
	}

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestSave_IOErrorRemovesPartialFile(t *testing.T) {
	s := newStore(t)

	_, err := s.Save("a.png", failingReader{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidImage)

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDelete(t *testing.T) {
	s := newStore(t)

	name, err := s.Save("a.png", strings.NewReader("x"))
	require.NoError(t, err)

	res, err := s.Delete(name)
	require.NoError(t, err)
	assert.Equal(t, Deleted, res)
	_, err = os.Stat(filepath.Join(s.Root(), name))
	assert.True(t, os.IsNotExist(err))

	res, err = s.Delete(name)
	require.NoError(t, err)
	assert.Equal(t, Missing, res)

	res, err = s.Delete("")
	require.NoError(t, err)
	assert.Equal(t, Skipped, res)
}

func TestDelete_ReportsIOFailure(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	s := newStore(t)
	name, err := s.Save("a.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, os.Chmod(s.Root(), 0555))
	t.Cleanup(func() { _ = os.Chmod(s.Root(), 0755) })

	res, err := s.Delete(name)
	assert.Error(t, err)
	assert.Equal(t, Failed, res)
}

func TestPath_RejectsTraversal(t *testing.T) {
	s := newStore(t)

	for _, name := range []string{"../secret.png", "a/b.png", `a\b.png`, "..", "x.exe", ""} {
		_, err := s.Path(name)
		assert.ErrorIs(t, err, ErrInvalidImage, name)
	}

	p, err := s.Path("abc.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "abc.png"), p)
}
