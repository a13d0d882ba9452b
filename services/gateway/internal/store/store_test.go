package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/cache"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()
	container, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic(err)
	}

	if err := applyMigrations(connStr); err != nil {
		_ = container.Terminate(ctx)
		panic(err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic(err)
	}
	testDB = db

	code := m.Run()

	_ = testDB.Close()
	_ = container.Terminate(ctx)

	os.Exit(code)
}

func applyMigrations(connStr string) error {
	dir, err := filepath.Abs(filepath.Join("..", "..", "..", "..", "migrations", "migrate"))
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+dir, connStr)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func resetDB(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec(`TRUNCATE TABLE runs, messages, files, rooms CASCADE`); err != nil {
		t.Fatalf("failed to reset db: %v", err)
	}
}

type memRunsCache struct {
	mu          sync.Mutex
	entries     map[string][]*types.Run
	invalidated []string
}

func newMemRunsCache() *memRunsCache {
	return &memRunsCache{entries: map[string][]*types.Run{}}
}

func (c *memRunsCache) GetRuns(_ context.Context, roomID string) ([]*types.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	runs, ok := c.entries[roomID]
	if !ok {
		return nil, cache.ErrMiss
	}
	return runs, nil
}

func (c *memRunsCache) SetRuns(_ context.Context, roomID string, runs []*types.Run) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[roomID] = runs
	return nil
}

func (c *memRunsCache) Invalidate(_ context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, roomID)
	c.invalidated = append(c.invalidated, roomID)
	return nil
}

func newTestStore() (Store, *memRunsCache) {
	c := newMemRunsCache()
	return NewStore(testDB, c, zap.NewNop()), c
}

func createRoom(t *testing.T, s Store, creator string) *types.Room {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), &types.Room{
		Name:      "pairing",
		CreatorID: creator,
		Members:   []string{creator},
		Tags:      []string{"go"},
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func TestStore_RoomLifecycle(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s, _ := newTestStore()
	alice, bob := uuid.NewString(), uuid.NewString()

	room := createRoom(t, s, alice)
	if len(room.Members) != 1 || room.Members[0] != alice {
		t.Fatalf("unexpected members: %v", room.Members)
	}

	joined, err := s.AddMember(ctx, room.ID, bob, types.MaxRoomMembers)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if len(joined.Members) != 2 {
		t.Fatalf("expected two members, got %v", joined.Members)
	}

	again, err := s.AddMember(ctx, room.ID, bob, types.MaxRoomMembers)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if len(again.Members) != 2 {
		t.Fatalf("join should be idempotent, got %v", again.Members)
	}

	rooms, err := s.ListRoomsForUser(ctx, bob, "go")
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected one room, got %d", len(rooms))
	}
	rooms, err = s.ListRoomsForUser(ctx, bob, "rust")
	if err != nil {
		t.Fatalf("list rooms by tag: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("tag filter not applied: %d", len(rooms))
	}

	left, err := s.RemoveMember(ctx, room.ID, bob)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if left.IsMember(bob) {
		t.Fatalf("bob still a member")
	}

	room.Name = "renamed"
	room.Tags = []string{"python"}
	updated, err := s.UpdateRoom(ctx, room)
	if err != nil {
		t.Fatalf("update room: %v", err)
	}
	if updated.Name != "renamed" || updated.Tags[0] != "python" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := s.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if _, err := s.GetRoom(ctx, room.ID); !errors.Is(err, types.ErrRoomNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStore_GetRoom_MalformedID(t *testing.T) {
	s, _ := newTestStore()

	if _, err := s.GetRoom(context.Background(), "not-a-uuid"); !errors.Is(err, types.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_AddMember_Full(t *testing.T) {
	resetDB(t)
	s, _ := newTestStore()
	room := createRoom(t, s, uuid.NewString())

	_, err := s.AddMember(context.Background(), room.ID, uuid.NewString(), 1)
	if !errors.Is(err, types.ErrRoomFull) {
		t.Fatalf("expected room full, got %v", err)
	}
}

func TestStore_Files(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s, _ := newTestStore()
	alice := uuid.NewString()
	room := createRoom(t, s, alice)

	file, err := s.CreateFile(ctx, &types.File{RoomID: room.ID, Name: "main.go", Language: "go", UpdatedBy: alice}, 2)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	_, err = s.CreateFile(ctx, &types.File{RoomID: room.ID, Name: "main.go", Language: "go"}, 2)
	if !errors.Is(err, types.ErrFileExists) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}

	if _, err := s.CreateFile(ctx, &types.File{RoomID: room.ID, Name: "util.go", Language: "go"}, 2); err != nil {
		t.Fatalf("create second file: %v", err)
	}
	_, err = s.CreateFile(ctx, &types.File{RoomID: room.ID, Name: "extra.go", Language: "go"}, 2)
	if !errors.Is(err, types.ErrTooManyFiles) {
		t.Fatalf("expected file limit error, got %v", err)
	}

	edited := time.Now().UTC().Truncate(time.Millisecond)
	err = s.SaveContent(ctx, &types.File{ID: file.ID, Content: "package main", UpdatedBy: alice, LastModified: edited})
	if err != nil {
		t.Fatalf("save content: %v", err)
	}

	got, err := s.GetFile(ctx, room.ID, file.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if got.Content != "package main" || !got.LastModified.Equal(edited) {
		t.Fatalf("unexpected file: %+v", got)
	}

	renamed, err := s.RenameFile(ctx, &types.File{ID: file.ID, RoomID: room.ID, Name: "app.go", Language: "go"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "app.go" {
		t.Fatalf("unexpected name %q", renamed.Name)
	}
	_, err = s.RenameFile(ctx, &types.File{ID: file.ID, RoomID: room.ID, Name: "util.go", Language: "go"})
	if !errors.Is(err, types.ErrFileExists) {
		t.Fatalf("expected rename conflict, got %v", err)
	}

	files, err := s.ListFiles(ctx, room.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 2 || files[0].Name != "app.go" || files[0].Content != "" {
		t.Fatalf("unexpected listing: %+v", files)
	}

	if err := s.DeleteFile(ctx, room.ID, file.ID); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	reloaded, err := s.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if len(reloaded.FileIDs) != 1 {
		t.Fatalf("file id not detached: %v", reloaded.FileIDs)
	}
	if err := s.DeleteFile(ctx, room.ID, file.ID); !errors.Is(err, types.ErrFileNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_Messages_Pagination(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s, _ := newTestStore()
	alice := uuid.NewString()
	room := createRoom(t, s, alice)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		_, err := s.CreateMessage(ctx, &types.Message{
			RoomID: room.ID, Channel: types.ChannelTeam, SenderID: alice, SenderName: "alice",
			Role: types.RoleUser, Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create message: %v", err)
		}
	}
	_, err := s.CreateMessage(ctx, &types.Message{
		RoomID: room.ID, Channel: types.ChannelAssistant, SenderName: "Assistant", Role: types.RoleAssistant, Text: "hi",
	})
	if err != nil {
		t.Fatalf("create assistant message: %v", err)
	}

	page, err := s.ListMessages(ctx, room.ID, types.MessageQuery{Channel: types.ChannelTeam, Limit: 2})
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(page) != 2 || page[0].Text != "two" || page[1].Text != "three" {
		t.Fatalf("unexpected newest page: %+v", page)
	}

	older, err := s.ListMessages(ctx, room.ID, types.MessageQuery{Channel: types.ChannelTeam, Limit: 2, Before: page[0].CreatedAt})
	if err != nil {
		t.Fatalf("list older: %v", err)
	}
	if len(older) != 1 || older[0].Text != "one" {
		t.Fatalf("unexpected older page: %+v", older)
	}
}

func TestStore_Runs_CacheAndFail(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	s, c := newTestStore()
	alice := uuid.NewString()
	room := createRoom(t, s, alice)

	run, err := s.CreateRun(ctx, &types.Run{RoomID: room.ID, UserID: alice, Language: "python", Source: "print(1)"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.Status != types.RunQueued || run.ExitCode != nil {
		t.Fatalf("unexpected run: %+v", run)
	}

	runs, err := s.ListRuns(ctx, room.ID, types.MaxRunHistory)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	if _, err := c.GetRuns(ctx, room.ID); err != nil {
		t.Fatalf("expected listing to populate cache: %v", err)
	}

	if err := s.FailRun(ctx, room.ID, run.ID, "queue unavailable"); err != nil {
		t.Fatalf("fail run: %v", err)
	}
	if _, err := c.GetRuns(ctx, room.ID); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected cache invalidated, got %v", err)
	}

	got, err := s.GetRun(ctx, room.ID, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != types.RunFailed || got.Message != "queue unavailable" {
		t.Fatalf("unexpected run after failure: %+v", got)
	}

	if _, err := s.GetRun(ctx, uuid.NewString(), run.ID); !errors.Is(err, types.ErrRunNotFound) {
		t.Fatalf("run must be scoped to its room, got %v", err)
	}
}
