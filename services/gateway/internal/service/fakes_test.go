package service

import (
	"context"
	"errors"
	"sync"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/assistant"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
)

var errNotImplemented = errors.New("not implemented")

type fakeStore struct {
	createRoomFn    func(room *types.Room) (*types.Room, error)
	getRoomFn       func(id string) (*types.Room, error)
	listRoomsFn     func(userID, tag string) ([]*types.Room, error)
	updateRoomFn    func(room *types.Room) (*types.Room, error)
	deleteRoomFn    func(id string) error
	addMemberFn     func(roomID, userID string, max int) (*types.Room, error)
	removeMemberFn  func(roomID, userID string) (*types.Room, error)
	createFileFn    func(file *types.File, max int) (*types.File, error)
	getFileFn       func(roomID, fileID string) (*types.File, error)
	listFilesFn     func(roomID string) ([]*types.File, error)
	renameFileFn    func(file *types.File) (*types.File, error)
	deleteFileFn    func(roomID, fileID string) error
	createMessageFn func(msg *types.Message) (*types.Message, error)
	listMessagesFn  func(roomID string, q types.MessageQuery) ([]*types.Message, error)
	createRunFn     func(run *types.Run) (*types.Run, error)
	getRunFn        func(roomID, runID string) (*types.Run, error)
	listRunsFn      func(roomID string, limit int) ([]*types.Run, error)
	failRunFn       func(roomID, runID, message string) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) CreateRoom(_ context.Context, room *types.Room) (*types.Room, error) {
	if f.createRoomFn == nil {
		return nil, errNotImplemented
	}
	return f.createRoomFn(room)
}

func (f *fakeStore) GetRoom(_ context.Context, id string) (*types.Room, error) {
	if f.getRoomFn == nil {
		return nil, errNotImplemented
	}
	return f.getRoomFn(id)
}

func (f *fakeStore) ListRoomsForUser(_ context.Context, userID, tag string) ([]*types.Room, error) {
	if f.listRoomsFn == nil {
		return nil, errNotImplemented
	}
	return f.listRoomsFn(userID, tag)
}

func (f *fakeStore) UpdateRoom(_ context.Context, room *types.Room) (*types.Room, error) {
	if f.updateRoomFn == nil {
		return nil, errNotImplemented
	}
	return f.updateRoomFn(room)
}

func (f *fakeStore) DeleteRoom(_ context.Context, id string) error {
	if f.deleteRoomFn == nil {
		return errNotImplemented
	}
	return f.deleteRoomFn(id)
}

func (f *fakeStore) AddMember(_ context.Context, roomID, userID string, max int) (*types.Room, error) {
	if f.addMemberFn == nil {
		return nil, errNotImplemented
	}
	return f.addMemberFn(roomID, userID, max)
}

func (f *fakeStore) RemoveMember(_ context.Context, roomID, userID string) (*types.Room, error) {
	if f.removeMemberFn == nil {
		return nil, errNotImplemented
	}
	return f.removeMemberFn(roomID, userID)
}

func (f *fakeStore) CreateFile(_ context.Context, file *types.File, max int) (*types.File, error) {
	if f.createFileFn == nil {
		return nil, errNotImplemented
	}
	return f.createFileFn(file, max)
}

func (f *fakeStore) GetFile(_ context.Context, roomID, fileID string) (*types.File, error) {
	if f.getFileFn == nil {
		return nil, errNotImplemented
	}
	return f.getFileFn(roomID, fileID)
}

func (f *fakeStore) ListFiles(_ context.Context, roomID string) ([]*types.File, error) {
	if f.listFilesFn == nil {
		return nil, errNotImplemented
	}
	return f.listFilesFn(roomID)
}

func (f *fakeStore) SaveContent(context.Context, *types.File) error {
	return errNotImplemented
}

func (f *fakeStore) RenameFile(_ context.Context, file *types.File) (*types.File, error) {
	if f.renameFileFn == nil {
		return nil, errNotImplemented
	}
	return f.renameFileFn(file)
}

func (f *fakeStore) DeleteFile(_ context.Context, roomID, fileID string) error {
	if f.deleteFileFn == nil {
		return errNotImplemented
	}
	return f.deleteFileFn(roomID, fileID)
}

func (f *fakeStore) CreateMessage(_ context.Context, msg *types.Message) (*types.Message, error) {
	if f.createMessageFn == nil {
		return nil, errNotImplemented
	}
	return f.createMessageFn(msg)
}

func (f *fakeStore) ListMessages(_ context.Context, roomID string, q types.MessageQuery) ([]*types.Message, error) {
	if f.listMessagesFn == nil {
		return nil, errNotImplemented
	}
	return f.listMessagesFn(roomID, q)
}

func (f *fakeStore) CreateRun(_ context.Context, run *types.Run) (*types.Run, error) {
	if f.createRunFn == nil {
		return nil, errNotImplemented
	}
	return f.createRunFn(run)
}

func (f *fakeStore) GetRun(_ context.Context, roomID, runID string) (*types.Run, error) {
	if f.getRunFn == nil {
		return nil, errNotImplemented
	}
	return f.getRunFn(roomID, runID)
}

func (f *fakeStore) ListRuns(_ context.Context, roomID string, limit int) ([]*types.Run, error) {
	if f.listRunsFn == nil {
		return nil, errNotImplemented
	}
	return f.listRunsFn(roomID, limit)
}

func (f *fakeStore) FailRun(_ context.Context, roomID, runID, message string) error {
	if f.failRunFn == nil {
		return errNotImplemented
	}
	return f.failRunFn(roomID, runID, message)
}

type fakeSaver struct {
	pending   map[string]*types.File
	discarded []string
	flushed   []string
	flushErr  error
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{pending: map[string]*types.File{}}
}

func (f *fakeSaver) Schedule(file *types.File) (*types.File, error) {
	p := *file
	p.Pending = true
	f.pending[file.ID] = &p
	return &p, nil
}

func (f *fakeSaver) Flush(_ context.Context, fileID string) error {
	f.flushed = append(f.flushed, fileID)
	if f.flushErr != nil {
		return f.flushErr
	}
	delete(f.pending, fileID)
	return nil
}

func (f *fakeSaver) Discard(fileID string) {
	f.discarded = append(f.discarded, fileID)
	delete(f.pending, fileID)
}

func (f *fakeSaver) Pending(fileID string) (*types.File, bool) {
	p, ok := f.pending[fileID]
	if !ok {
		return nil, false
	}
	snapshot := *p
	return &snapshot, true
}

func (f *fakeSaver) Overlay(file *types.File, withContent bool) {
	if p, ok := f.Pending(file.ID); ok {
		file.MergePending(p, withContent)
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []events.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Type, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

type fakeGenerator struct {
	generateFn  func(history []assistant.Turn, prompt string) (string, error)
	lastHistory []assistant.Turn
	lastPrompt  string
}

func (f *fakeGenerator) Generate(_ context.Context, history []assistant.Turn, prompt string) (string, error) {
	f.lastHistory, f.lastPrompt = history, prompt
	return f.generateFn(history, prompt)
}

type fakeProducer struct {
	jobs []*events.RunJob
	err  error
}

func (f *fakeProducer) Enqueue(_ context.Context, job *events.RunJob) error {
	f.jobs = append(f.jobs, job)
	return f.err
}
