package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/store/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T, storage Storage) *Store {
	t.Helper()
	l := zaptest.NewLogger(t)
	h, err := NewHistory(l, HistoryWithStorage(storage), HistoryWithHistoryLimit(2))
	require.NoError(t, err)
	return New(l, h)
}

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t, newTestBlobStorage(t, ""))
	for _, c := range mock.Contacts() {
		require.NoError(t, s.Add(context.Background(), c))
	}
	return s
}

func TestLoadAll_MissingDocument(t *testing.T) {
	s := newTestStore(t, newTestFilesystemStorage(t))

	contacts, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

func TestLoadAll_EmptyDocument(t *testing.T) {
	ctx := context.Background()
	for _, doc := range []string{"", "  \n", "null", "[]"} {
		storage := newTestBlobStorage(t, "")
		require.NoError(t, storage.Write(ctx, CurrentKey, []byte(doc)))

		contacts, err := newTestStore(t, storage).LoadAll(ctx)
		require.NoError(t, err, doc)
		assert.Empty(t, contacts, doc)
	}
}

func TestLoadAll_Fixture(t *testing.T) {
	ctx := context.Background()
	storage := newTestBlobStorage(t, "")
	require.NoError(t, storage.Write(ctx, CurrentKey, mock.Document(t, "contacts-ok.json")))

	contacts, err := newTestStore(t, storage).LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, mock.Contacts(), contacts)
}

func TestLoadAll_BrokenDocument(t *testing.T) {
	ctx := context.Background()
	storage := newTestBlobStorage(t, "")
	require.NoError(t, storage.Write(ctx, CurrentKey, mock.Document(t, "contacts-broken.json")))
	s := newTestStore(t, storage)

	_, err := s.LoadAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageRead)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, CurrentKey, storageErr.Key)

	// mutations must not overwrite a document they could not read
	err = s.Add(ctx, contact.New("A", "a@x.com", "0811"))
	assert.ErrorIs(t, err, ErrStorageRead)
	data, err := storage.Read(ctx, CurrentKey)
	require.NoError(t, err)
	assert.Equal(t, mock.Document(t, "contacts-broken.json"), data)
}

func TestLoadAll_UnreadableDocument(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFilesystemStorage(dir)
	require.NoError(t, err)
	// a directory where the document should be
	require.NoError(t, os.Mkdir(filepath.Join(dir, CurrentKey), 0700))

	_, err = newTestStore(t, storage).LoadAll(context.Background())
	assert.ErrorIs(t, err, ErrStorageRead)
}

func TestAdd_WriteError(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFilesystemStorage(dir)
	require.NoError(t, err)
	s := newTestStore(t, storage)
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })
	if f, err := os.CreateTemp(dir, "probe"); err == nil {
		// running as root, permissions are not enforced
		_ = f.Close()
		t.Skip("directory is still writable")
	}

	err = s.Add(context.Background(), contact.New("A", "a@x.com", "0811"))
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.False(t, errors.Is(err, ErrStorageRead))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := newTestFilesystemStorage(t)
	s := newTestStore(t, storage)

	a := contact.New("A", "a@x.com", "0811")
	require.NoError(t, s.Add(ctx, a))

	// a fresh store on the same storage sees the same document
	contacts, err := newTestStore(t, storage).LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []contact.Contact{a}, contacts)
}

func TestFindByName_ExactMatch(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	_, ok, err := s.FindByName(ctx, "ajun bagas")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.FindByName(ctx, "Ajun")
	require.NoError(t, err)
	assert.False(t, ok)

	c, ok, err := s.FindByName(ctx, "Ajun Bagas")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mock.Contacts()[0], c)
}

func TestExistsByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newTestBlobStorage(t, ""))

	ok, err := s.ExistsByName(ctx, "n")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, contact.New("n", "n@x.com", "0811")))
	ok, err = s.ExistsByName(ctx, "n")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := s.Delete(ctx, "n")
	require.NoError(t, err)
	assert.True(t, deleted)
	ok, err = s.ExistsByName(ctx, "n")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_Rename(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newTestBlobStorage(t, ""))
	require.NoError(t, s.Add(ctx, contact.New("A", "a@x.com", "0811")))

	b := contact.New("B", "b@x.com", "0822")
	updated, err := s.Update(ctx, "A", b)
	require.NoError(t, err)
	assert.True(t, updated)

	_, ok, err := s.FindByName(ctx, "A")
	require.NoError(t, err)
	assert.False(t, ok)

	c, ok, err := s.FindByName(ctx, "B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, c)
}

func TestUpdate_KeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	changed := contact.New("Sarah A.", "sarah@x.com", "0899")
	updated, err := s.Update(ctx, "Sarah Apriliani", changed)
	require.NoError(t, err)
	require.True(t, updated)

	contacts, err := s.LoadAll(ctx)
	require.NoError(t, err)
	expected := mock.Contacts()
	expected[1] = changed
	assert.Equal(t, expected, contacts)
}

func TestUpdate_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	before, err := s.Backups(ctx)
	require.NoError(t, err)

	updated, err := s.Update(ctx, "Nonexistent", contact.New("X", "x@x.com", "0811"))
	require.NoError(t, err)
	assert.False(t, updated)

	contacts, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, mock.Contacts(), contacts)

	after, err := s.Backups(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "nothing should have been persisted")
}

func TestDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	deleted, err := s.Delete(ctx, "Nonexistent")
	require.NoError(t, err)
	assert.False(t, deleted)

	contacts, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 3)
	assert.Equal(t, mock.Contacts(), contacts)
}

func TestDelete_FirstMatchOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newTestBlobStorage(t, ""))
	// the store does not enforce uniqueness itself
	require.NoError(t, s.Add(ctx, contact.New("A", "first@x.com", "0811")))
	require.NoError(t, s.Add(ctx, contact.New("A", "second@x.com", "0822")))

	_, err := s.Delete(ctx, "A")
	require.NoError(t, err)

	contacts, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "second@x.com", contacts[0].Email)
}

func TestOperationSequence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newTestFilesystemStorage(t))

	var expected []contact.Contact
	apply := func(op string, c contact.Contact, name string) {
		switch op {
		case "add":
			require.NoError(t, s.Add(ctx, c))
			expected = append(expected, c)
		case "update":
			_, err := s.Update(ctx, name, c)
			require.NoError(t, err)
			for i := range expected {
				if expected[i].Name == name {
					expected[i] = c
					break
				}
			}
		case "delete":
			_, err := s.Delete(ctx, name)
			require.NoError(t, err)
			for i := range expected {
				if expected[i].Name == name {
					expected = append(expected[:i], expected[i+1:]...)
					break
				}
			}
		}
	}

	apply("add", contact.New("A", "a@x.com", "0811"), "")
	apply("add", contact.New("B", "b@x.com", "0822"), "")
	apply("add", contact.New("C", "c@x.com", "0833"), "")
	apply("update", contact.New("B2", "b2@x.com", "0844"), "B")
	apply("delete", contact.Contact{}, "A")
	apply("delete", contact.Contact{}, "Nonexistent")
	apply("add", contact.New("D", "d@x.com", "0855"), "")
	apply("update", contact.New("E", "e@x.com", "0866"), "Nonexistent")

	contacts, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, contacts)
}

func TestConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newTestFilesystemStorage(t))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, contact.New(string(rune('a'+i)), "x@x.com", "0811")))
		}()
	}
	wg.Wait()

	contacts, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 20, "no write may be lost")
}
