package mock

import (
	"os"
	"path"
	"runtime"
	"testing"

	"github.com/foomo/contactserver/contact"
)

// Contacts the fixture contacts, in document order
func Contacts() []contact.Contact {
	return []contact.Contact{
		contact.New("Ajun Bagas", "ajunbagas@gmail.com", "081234567890"),
		contact.New("Sarah Apriliani", "sarahapr@gmail.com", "085712345678"),
		contact.New("Gustav Kennedy", "gustavken@gmail.com", "+6281398765432"),
	}
}

// Document returns the raw bytes of a fixture file next to this source file
func Document(tb testing.TB, name string) []byte {
	tb.Helper()
	_, filename, _, _ := runtime.Caller(0)
	data, err := os.ReadFile(path.Join(path.Dir(filename), name))
	if err != nil {
		tb.Fatal(err)
	}
	return data
}
