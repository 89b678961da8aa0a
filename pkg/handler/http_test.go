package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/handler"
	"github.com/foomo/contactserver/pkg/store"
	"github.com/foomo/contactserver/pkg/store/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func initStore(tb testing.TB, contacts ...contact.Contact) *store.Store {
	tb.Helper()
	l := zaptest.NewLogger(tb)
	storage, err := store.NewBlobStorage(context.Background(), "mem://", "")
	require.NoError(tb, err)
	h, err := store.NewHistory(l, store.HistoryWithStorage(storage))
	require.NoError(tb, err)
	s := store.New(l, h)
	tb.Cleanup(func() { _ = s.Close() })
	for _, c := range contacts {
		require.NoError(tb, s.Add(context.Background(), c))
	}
	return s
}

func initServer(tb testing.TB, s store.ContactStore) *httptest.Server {
	tb.Helper()
	h, err := handler.NewHTTP(zaptest.NewLogger(tb), s)
	require.NoError(tb, err)
	server := httptest.NewServer(h)
	tb.Cleanup(server.Close)
	return server
}

// newBrowser follows redirects and keeps cookies like a browser would
func newBrowser(tb testing.TB) *http.Client {
	tb.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(tb, err)
	return &http.Client{Jar: jar}
}

func get(t *testing.T, c *http.Client, u string) (int, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func postForm(t *testing.T, c *http.Client, u string, values url.Values) (int, string) {
	t.Helper()
	resp, err := c.PostForm(u, values)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestPages(t *testing.T) {
	server := initServer(t, initStore(t, mock.Contacts()...))
	c := newBrowser(t)

	status, body := get(t, c, server.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "ujangs@yandex.com")
	assert.Contains(t, body, "Gustav Kennedy")

	status, body = get(t, c, server.URL+"/about")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "About")

	status, body = get(t, c, server.URL+"/contact")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Sarah Apriliani")
	assert.Contains(t, body, "/contact/Ajun%20Bagas")

	status, _ = get(t, c, server.URL+"/contact/add")
	assert.Equal(t, http.StatusOK, status)

	status, body = get(t, c, server.URL+"/nowhere")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "404 Page not found")
}

func TestContactListEmpty(t *testing.T) {
	server := initServer(t, initStore(t))
	status, body := get(t, newBrowser(t), server.URL+"/contact")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Data contact masih kosong!")
}

func TestDetail(t *testing.T) {
	server := initServer(t, initStore(t, mock.Contacts()...))
	c := newBrowser(t)

	status, body := get(t, c, server.URL+"/contact/Ajun%20Bagas")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "ajunbagas@gmail.com")

	status, body = get(t, c, server.URL+"/contact/ajun%20bagas")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Contact dengan nama tersebut tidak tersedia!")
}

func TestAddContact(t *testing.T) {
	s := initStore(t, mock.Contacts()...)
	server := initServer(t, s)
	c := newBrowser(t)

	status, body := postForm(t, c, server.URL+"/contact", url.Values{
		"name":  {"Budi Santoso"},
		"email": {"budi@gmail.com"},
		"phone": {"081298765432"},
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Data contact berhasil ditambahkan")
	assert.Contains(t, body, "Budi Santoso")

	ok, err := s.ExistsByName(context.Background(), "Budi Santoso")
	require.NoError(t, err)
	assert.True(t, ok)

	// the flash message is only shown once
	_, body = get(t, c, server.URL+"/contact")
	assert.NotContains(t, body, "Data contact berhasil ditambahkan")
}

func TestAddContact_Invalid(t *testing.T) {
	s := initStore(t, mock.Contacts()...)
	server := initServer(t, s)

	status, body := postForm(t, newBrowser(t), server.URL+"/contact", url.Values{
		"name":  {"Ajun Bagas"},
		"email": {"not-an-email"},
		"phone": {"12345"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Nama contact sudah tersedia, harap gunakan nama lain!")
	assert.Contains(t, body, "Alamat email tidak valid!")
	assert.Contains(t, body, "Nomor telepon tidak valid!")
	// the form keeps the submitted values
	assert.Contains(t, body, `value="not-an-email"`)

	contacts, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mock.Contacts(), contacts)
}

func TestEditAndUpdateContact(t *testing.T) {
	s := initStore(t, mock.Contacts()...)
	server := initServer(t, s)
	c := newBrowser(t)

	status, body := get(t, c, server.URL+"/contact/edit/Sarah%20Apriliani")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="oldName" value="Sarah Apriliani"`)

	status, _ = get(t, c, server.URL+"/contact/edit/Nobody")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = postForm(t, c, server.URL+"/contact/update", url.Values{
		"oldName": {"Sarah Apriliani"},
		"name":    {"Gustav Kennedy"},
		"email":   {"sarahapr@gmail.com"},
		"phone":   {"085712345678"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Nama contact sudah tersedia")

	status, body = postForm(t, c, server.URL+"/contact/update", url.Values{
		"oldName": {"Sarah Apriliani"},
		"name":    {"Sarah A."},
		"email":   {"sarah@gmail.com"},
		"phone":   {"085712345678"},
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Data contact berhasil diubah")

	contacts, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	assert.Equal(t, contact.New("Sarah A.", "sarah@gmail.com", "085712345678"), contacts[1])
}

func TestDeleteContact(t *testing.T) {
	s := initStore(t, mock.Contacts()...)
	server := initServer(t, s)
	c := newBrowser(t)

	status, body := get(t, c, server.URL+"/contact/delete/Nobody")
	assert.Equal(t, http.StatusNotFound, status)
	assert.True(t, strings.Contains(body, "404"))

	status, body = get(t, c, server.URL+"/contact/delete/Gustav%20Kennedy")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Data contact tersebut berhasil dihapus")

	ok, err := s.ExistsByName(context.Background(), "Gustav Kennedy")
	require.NoError(t, err)
	assert.False(t, ok)
}
