package store

import (
	"bytes"
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/metrics"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// ErrStorageRead the document exists but could not be read or parsed
	ErrStorageRead = errors.New("storage read failed")
	// ErrStorageWrite the backend rejected the document
	ErrStorageWrite = errors.New("storage write failed")
)

// ContactStore is what request handlers need from the contact document.
type ContactStore interface {
	LoadAll(ctx context.Context) ([]contact.Contact, error)
	FindByName(ctx context.Context, name string) (contact.Contact, bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Add(ctx context.Context, c contact.Contact) error
	Update(ctx context.Context, oldName string, c contact.Contact) (bool, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// Store keeps all contacts in a single JSON document. Every call re-reads
// the document, mutations rewrite it as a whole. Calls are serialized so
// that concurrent requests of one process can not lose each others writes.
type Store struct {
	l       *zap.Logger
	history *History
	mu      sync.Mutex
}

var _ ContactStore = (*Store)(nil)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, history *History) *Store {
	return &Store{
		l:       l.Named("store"),
		history: history,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// LoadAll returns all contacts in document order. A missing document is an empty store.
func (s *Store) LoadAll(ctx context.Context) ([]contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	contacts, err := s.load(ctx)
	s.observe("load_all", start, err)
	return contacts, err
}

// FindByName returns the first contact whose name equals name exactly.
func (s *Store) FindByName(ctx context.Context, name string) (contact.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	contacts, err := s.load(ctx)
	s.observe("find_by_name", start, err)
	if err != nil {
		return contact.Contact{}, false, err
	}
	if i := indexOf(contacts, name); i >= 0 {
		return contacts[i], true, nil
	}
	return contact.Contact{}, false, nil
}

func (s *Store) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, ok, err := s.FindByName(ctx, name)
	return ok, err
}

// Add appends c without checking for duplicates, that is up to the caller.
func (s *Store) Add(ctx context.Context, c contact.Contact) error {
	_, err := s.mutate(ctx, "add", func(contacts []contact.Contact) ([]contact.Contact, bool) {
		return append(contacts, c), true
	})
	return err
}

// Update replaces the contact named oldName in place, c may carry a new name.
// Returns false and persists nothing if oldName is unknown.
func (s *Store) Update(ctx context.Context, oldName string, c contact.Contact) (bool, error) {
	return s.mutate(ctx, "update", func(contacts []contact.Contact) ([]contact.Contact, bool) {
		i := indexOf(contacts, oldName)
		if i < 0 {
			return contacts, false
		}
		contacts[i] = c
		return contacts, true
	})
}

// Delete removes the first contact named name.
// Returns false and persists nothing if name is unknown.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	return s.mutate(ctx, "delete", func(contacts []contact.Contact) ([]contact.Contact, bool) {
		i := indexOf(contacts, name)
		if i < 0 {
			return contacts, false
		}
		return slices.Delete(contacts, i, i+1), true
	})
}

// Backups lists the kept document backups, newest first.
func (s *Store) Backups(ctx context.Context) ([]string, error) {
	return s.history.Backups(ctx)
}

func (s *Store) Close() error {
	return s.history.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (s *Store) mutate(ctx context.Context, op string, fn func([]contact.Contact) ([]contact.Contact, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	l := s.l.With(zap.String("op", op), zap.String("op_id", uuid.New().String()))

	contacts, err := s.load(ctx)
	if err != nil {
		l.Error("failed to load document", zap.Error(err))
		s.observe(op, start, err)
		return false, err
	}

	contacts, changed := fn(contacts)
	if !changed {
		l.Debug("no matching contact, nothing persisted")
		s.observe(op, start, nil)
		return false, nil
	}

	if err := s.persist(ctx, contacts); err != nil {
		l.Error("failed to persist document", zap.Error(err))
		s.observe(op, start, err)
		return false, err
	}

	l.Info("persisted document", zap.Int("contacts", len(contacts)))
	metrics.ContactsGauge.WithLabelValues().Set(float64(len(contacts)))
	s.observe(op, start, nil)
	return true, nil
}

func (s *Store) load(ctx context.Context) ([]contact.Contact, error) {
	var buf bytes.Buffer
	if err := s.history.GetCurrent(ctx, &buf); errors.Is(err, os.ErrNotExist) {
		s.l.Debug("document does not exist yet")
		return []contact.Contact{}, nil
	} else if err != nil {
		return nil, &StorageError{Kind: ErrStorageRead, Key: CurrentKey, Err: err}
	}

	contacts := []contact.Contact{}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return contacts, nil
	}
	if err := json.Unmarshal(buf.Bytes(), &contacts); err != nil {
		return nil, &StorageError{Kind: ErrStorageRead, Key: CurrentKey, Err: err}
	}
	if contacts == nil {
		// literal null
		contacts = []contact.Contact{}
	}
	return contacts, nil
}

func (s *Store) persist(ctx context.Context, contacts []contact.Contact) error {
	data, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return &StorageError{Kind: ErrStorageWrite, Key: CurrentKey, Err: err}
	}
	if err := s.history.Add(ctx, data); err != nil {
		return &StorageError{Kind: ErrStorageWrite, Key: CurrentKey, Err: err}
	}
	return nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationCounter.WithLabelValues(op, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func indexOf(contacts []contact.Contact, name string) int {
	return slices.IndexFunc(contacts, func(c contact.Contact) bool {
		return c.Name == name
	})
}
