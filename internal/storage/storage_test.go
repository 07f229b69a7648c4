package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	n, err := store.Save("20250101_120000_abcdef123456.png", bytes.NewReader([]byte("image bytes")))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	rc, err := store.Open("20250101_120000_abcdef123456.png")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
}

func TestLocalStorage_SaveRefusesOverwrite(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	_, err := store.Save("name.png", strings.NewReader("first"))
	require.NoError(t, err)

	_, err = store.Save("name.png", strings.NewReader("second"))
	assert.True(t, errors.Is(err, os.ErrExist))

	// first write is untouched
	rc, err := store.Open("name.png")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "first", string(data))
}

func TestLocalStorage_ReplaceOverwrites(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	_, err := store.Replace("thumbs/name.png", strings.NewReader("old thumb"))
	require.NoError(t, err)

	_, err = store.Replace("thumbs/name.png", strings.NewReader("new thumb"))
	require.NoError(t, err)

	rc, err := store.Open("thumbs/name.png")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "new thumb", string(data))
}

func TestLocalStorage_DeleteAbsentKeyIsNoError(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	assert.NoError(t, store.Delete("never-existed.png"))
}

func TestLocalStorage_Delete(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	_, err := store.Save("name.png", strings.NewReader("bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Delete("name.png"))

	_, err = store.Open("name.png")
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_RejectsTraversalKeys(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	tests := []string{"../escape.png", "/abs.png", "a/../../b.png", "."}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := store.Save(key, strings.NewReader("x"))
			assert.Error(t, err)
		})
	}
}

func TestDeriveStoredName(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	hash := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	name := DeriveStoredName(at, hash, ".PNG")

	assert.Equal(t, "20250101_120000_9f86d081884c.png", name)
}

func TestDeriveStoredName_ShortHashAndBareExtension(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	name := DeriveStoredName(at, "abc", "jpg")

	assert.Equal(t, "20250101_120000_abc.jpg", name)
}

func TestResaltStoredName(t *testing.T) {
	name := "20250101_120000_9f86d081884c.png"

	resalted := ResaltStoredName(name)

	assert.NotEqual(t, name, resalted)
	assert.True(t, strings.HasPrefix(resalted, "20250101_120000_9f86d081884c_"))
	assert.True(t, strings.HasSuffix(resalted, ".png"))

	// re-salting twice produces distinct keys
	assert.NotEqual(t, resalted, ResaltStoredName(name))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbs/x.png", ThumbnailKey("x.png"))
}
