// Package autosave batches rapid file edits into debounced writes.
//
// Every Schedule replaces the pending content of a file and restarts its
// quiet timer. A file that keeps changing is still written once maxWait has
// passed since its first unsaved edit. Readers overlay pending content on
// stored records with Overlay, so the newest accepted edit is always what
// they see.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("autosave is closed")

const writeTimeout = 10 * time.Second

// Store persists file content together with its edit time.
type Store interface {
	SaveContent(ctx context.Context, file *types.File) error
}

type Saver struct {
	store    Store
	pub      events.Publisher
	logger   *zap.Logger
	debounce time.Duration
	maxWait  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
}

type entry struct {
	// flushMu serialises writes of one file so an older snapshot can never
	// land after a newer one.
	flushMu sync.Mutex

	file types.File
	// first is the oldest edit not covered by a finished or in-flight
	// write. Zero while every accepted edit is being written.
	first   time.Time
	version uint64
	timer   *time.Timer
}

// SavedPayload is the payload of a file.saved event.
type SavedPayload struct {
	FileID       string    `json:"file_id"`
	Content      string    `json:"content"`
	UpdatedBy    string    `json:"updated_by"`
	LastModified time.Time `json:"last_modified"`
}

func New(store Store, pub events.Publisher, logger *zap.Logger, debounce, maxWait time.Duration) *Saver {
	if maxWait < debounce {
		maxWait = debounce
	}
	return &Saver{
		store:    store,
		pub:      pub,
		logger:   logger,
		debounce: debounce,
		maxWait:  maxWait,
		now:      time.Now,
		pending:  make(map[string]*entry),
	}
}

// Schedule records new content for a file. Only ID, RoomID, Content and
// UpdatedBy are read from file; the edit time is stamped here.
func (s *Saver) Schedule(file *types.File) (*types.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	// postgres keeps microseconds; stamping at that precision lets readers
	// compare stored and pending edit times directly.
	now := s.now().UTC().Truncate(time.Microsecond)
	e, ok := s.pending[file.ID]
	if !ok {
		e = &entry{}
		s.pending[file.ID] = e
	}
	if e.first.IsZero() {
		e.first = now
	}
	e.version++
	e.file = types.File{
		ID:           file.ID,
		RoomID:       file.RoomID,
		Content:      file.Content,
		UpdatedBy:    file.UpdatedBy,
		LastModified: now,
	}

	delay := s.debounce
	if remaining := e.first.Add(s.maxWait).Sub(now); remaining < delay {
		delay = max(remaining, 0)
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	id := file.ID
	e.timer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.flush(ctx, id); err != nil {
			s.logger.Error("autosave failed", zap.String("file_id", id), zap.Error(err))
		}
	})

	snapshot := e.file
	snapshot.Pending = true
	return &snapshot, nil
}

// Flush writes the pending content of a file now. It is a no-op when nothing
// is pending.
func (s *Saver) Flush(ctx context.Context, fileID string) error {
	return s.flush(ctx, fileID)
}

func (s *Saver) flush(ctx context.Context, fileID string) error {
	s.mu.Lock()
	e, ok := s.pending[fileID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	s.mu.Lock()
	if s.pending[fileID] != e {
		s.mu.Unlock()
		return nil
	}
	snapshot, version, batchFirst := e.file, e.version, e.first
	e.first = time.Time{}
	s.mu.Unlock()

	if err := s.store.SaveContent(ctx, &snapshot); err != nil {
		if errors.Is(err, types.ErrFileNotFound) {
			s.Discard(fileID)
		} else {
			s.mu.Lock()
			if s.pending[fileID] == e {
				e.first = batchFirst
			}
			s.mu.Unlock()
		}
		return fmt.Errorf("failed to persist file %s: %w", fileID, err)
	}

	s.mu.Lock()
	if s.pending[fileID] == e && e.version == version {
		e.timer.Stop()
		delete(s.pending, fileID)
	}
	s.mu.Unlock()

	s.publishSaved(ctx, &snapshot)
	return nil
}

func (s *Saver) publishSaved(ctx context.Context, file *types.File) {
	ev, err := events.New(events.FileSaved, file.RoomID, file.UpdatedBy, SavedPayload{
		FileID:       file.ID,
		Content:      file.Content,
		UpdatedBy:    file.UpdatedBy,
		LastModified: file.LastModified,
	})
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("failed to publish file.saved", zap.String("file_id", file.ID), zap.Error(err))
	}
}

// Discard drops pending content without writing it.
func (s *Saver) Discard(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.pending[fileID]; ok {
		e.timer.Stop()
		delete(s.pending, fileID)
	}
}

// Pending returns a copy of the unsaved state of a file.
func (s *Saver) Pending(fileID string) (*types.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[fileID]
	if !ok {
		return nil, false
	}
	snapshot := e.file
	snapshot.Pending = true
	return &snapshot, true
}

// Overlay applies pending state to a stored record in place. Content is only
// replaced when withContent is set, so metadata listings stay small.
func (s *Saver) Overlay(file *types.File, withContent bool) {
	if p, ok := s.Pending(file.ID); ok {
		file.MergePending(p, withContent)
	}
}

// Close stops all timers and writes everything still pending.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ids := make([]string, 0, len(s.pending))
	for id, e := range s.pending {
		e.timer.Stop()
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.flush(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
