package store

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/foomo/contactserver/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	HistoryJSONPrefix = "contacts-"
	HistoryJSONSuffix = ".json"
	CurrentKey        = HistoryJSONPrefix + "current" + HistoryJSONSuffix

	// fixed width, backups sort chronologically by name
	historyTimeLayout = "20060102T150405.000000000Z"
)

type (
	History struct {
		l            *zap.Logger
		storage      Storage
		historyDir   string // used when no storage is given
		historyLimit int
		now          func() time.Time
		mu           sync.RWMutex
	}
	HistoryOption func(*History)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// HistoryWithHistoryLimit sets the number of backups to keep, 0 disables backups.
func HistoryWithHistoryLimit(v int) HistoryOption {
	return func(o *History) {
		o.historyLimit = v
	}
}

func HistoryWithHistoryDir(v string) HistoryOption {
	return func(o *History) {
		o.historyDir = v
	}
}

func HistoryWithStorage(s Storage) HistoryOption {
	return func(o *History) {
		o.storage = s
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewHistory(l *zap.Logger, opts ...HistoryOption) (*History, error) {
	inst := &History{
		l:            l.Named("history"),
		historyDir:   "/var/lib/contactserver",
		historyLimit: 2,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(inst)
	}

	if inst.storage == nil {
		storage, err := NewFilesystemStorage(inst.historyDir)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create default filesystem storage")
		}
		inst.storage = storage
	}

	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Add replaces the current document and keeps a timestamped backup of it.
// Only a failure to write the current document is returned, backup problems
// are logged and counted.
func (h *History) Add(ctx context.Context, jsonBytes []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.storage.Write(ctx, CurrentKey, jsonBytes); err != nil {
		return errors.Wrap(err, "failed to write current document")
	}

	if h.historyLimit <= 0 {
		return nil
	}

	backupKey := HistoryJSONPrefix + h.now().UTC().Format(historyTimeLayout) + HistoryJSONSuffix
	h.l.Debug("writing backup", zap.String("backup", backupKey))
	if err := h.storage.Write(ctx, backupKey, jsonBytes); err != nil {
		h.l.Warn("failed to write backup", zap.String("backup", backupKey), zap.Error(err))
		metrics.HistoryPersistFailedCounter.WithLabelValues().Inc()
		return nil
	}

	if err := h.cleanup(ctx); err != nil {
		h.l.Warn("failed to clean up history", zap.Error(err))
		metrics.HistoryPersistFailedCounter.WithLabelValues().Inc()
	}

	return nil
}

// GetCurrent reads the current document into buf, os.ErrNotExist if there is none yet.
func (h *History) GetCurrent(ctx context.Context, buf *bytes.Buffer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, err := h.storage.Read(ctx, CurrentKey)
	if err != nil {
		return err
	}
	_, err = buf.Write(data)
	return err
}

// Backups returns the keys of all kept backups, newest first.
func (h *History) Backups(ctx context.Context) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.getHistory(ctx)
}

func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.storage != nil {
		return h.storage.Close()
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *History) getHistory(ctx context.Context) (files []string, err error) {
	keys, err := h.storage.List(ctx, HistoryJSONPrefix)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if key != CurrentKey && strings.HasSuffix(key, HistoryJSONSuffix) {
			files = append(files, key)
		}
	}
	return files, nil
}

func (h *History) cleanup(ctx context.Context) error {
	files, err := h.getFilesForCleanup(ctx, h.historyLimit)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			h.l.Debug("removing outdated backup", zap.String("file", f))
			return errors.Wrapf(h.storage.Delete(gCtx, f), "could not remove %s", f)
		})
	}
	return g.Wait()
}

func (h *History) getFilesForCleanup(ctx context.Context, historyVersions int) ([]string, error) {
	contentFiles, err := h.getHistory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not generate file cleanup list")
	}

	if len(contentFiles) <= historyVersions {
		return nil, nil
	}
	return contentFiles[historyVersions:], nil
}
