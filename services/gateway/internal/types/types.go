package types

import (
	"errors"
	"time"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrRunNotFound        = errors.New("run not found")
	ErrForbidden          = errors.New("forbidden")
	ErrFileExists         = errors.New("a file with this name already exists in the room")
	ErrRoomFull           = errors.New("room is full")
	ErrTooManyFiles       = errors.New("room has reached its file limit")
	ErrCreatorCannotLeave = errors.New("the room creator cannot leave the room")
	ErrContentTooLarge    = errors.New("file content is too large")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedRun     = errors.New("language cannot be run")
	ErrAssistantDisabled  = errors.New("assistant is not configured")
	ErrEmptyReply         = errors.New("assistant returned an empty reply")
)

const (
	MaxRoomMembers  = 25
	MaxRoomFiles    = 50
	MaxContentBytes = 512 << 10
	MaxTags         = 10
	MaxTagLength    = 30
	MaxMessageRunes = 4000

	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	MaxRunHistory       = 50
)

type Channel string

const (
	ChannelTeam      Channel = "team"
	ChannelAssistant Channel = "assistant"
)

func (c Channel) Valid() bool {
	return c == ChannelTeam || c == ChannelAssistant
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type RunStatus string

const (
	RunQueued       RunStatus = "queued"
	RunRunning      RunStatus = "running"
	RunSucceeded    RunStatus = "succeeded"
	RunCompileError RunStatus = "compile_error"
	RunRuntimeError RunStatus = "runtime_error"
	RunTimeout      RunStatus = "timeout"
	RunFailed       RunStatus = "failed"
)

// Identity is the authenticated caller as reported by the auth service.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	Members     []string  `json:"members"`
	FileIDs     []string  `json:"file_ids"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Room) IsMember(userID string) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type RoomDetail struct {
	*Room
	MemberCount int     `json:"member_count"`
	Files       []*File `json:"files"`
}

type File struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	Language     string    `json:"language"`
	Content      string    `json:"content,omitempty"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
	LastModified time.Time `json:"last_modified"`
	// Pending reports that the content shown has not been persisted yet.
	Pending bool `json:"pending,omitempty"`
}

// MergePending applies an unsaved edit unless the stored record is newer.
// Content is only replaced when withContent is set.
func (f *File) MergePending(p *File, withContent bool) {
	if p == nil || p.LastModified.Before(f.LastModified) {
		return
	}
	if withContent {
		f.Content = p.Content
	}
	f.UpdatedBy = p.UpdatedBy
	f.LastModified = p.LastModified
	f.Pending = true
}

type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	Channel    Channel   `json:"channel"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name"`
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

type Run struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	FileID        string    `json:"file_id,omitempty"`
	UserID        string    `json:"user_id"`
	Language      string    `json:"language"`
	Source        string    `json:"source"`
	Stdin         string    `json:"stdin,omitempty"`
	Status        RunStatus `json:"status"`
	Stdout        string    `json:"stdout"`
	Stderr        string    `json:"stderr"`
	CompileOutput string    `json:"compile_output"`
	Message       string    `json:"message,omitempty"`
	ExitCode      *int      `json:"exit_code,omitempty"`
	TimeMs        int       `json:"time_ms"`
	MemoryKB      int       `json:"memory_kb"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type MessageQuery struct {
	Channel Channel
	Before  time.Time
	Limit   int
}

type RoomUpdate struct {
	Name        *string
	Description *string
	Tags        []string
	SetTags     bool
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type CreateRoomRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"max=2000"`
	Tags        []string `json:"tags"`
}

type UpdateRoomRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Tags        *[]string `json:"tags"`
}

type CreateFileRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Language string `json:"language" validate:"max=32"`
	Content  string `json:"content"`
}

type SaveFileRequest struct {
	Content string `json:"content"`
	Flush   bool   `json:"flush"`
}

type UpdateFileRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Language string `json:"language" validate:"max=32"`
}

type PostMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type AskRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	FileID string `json:"file_id" validate:"omitempty,uuid"`
}

type CreateRunRequest struct {
	FileID   string `json:"file_id" validate:"omitempty,uuid"`
	Language string `json:"language" validate:"max=32"`
	Source   string `json:"source"`
	Stdin    string `json:"stdin" validate:"max=65536"`
}

// CreateRun is the service-level form of a run request.
type CreateRun struct {
	FileID   string
	Language string
	Source   string
	Stdin    string
}

type AskReply struct {
	Prompt *Message `json:"prompt"`
	Reply  *Message `json:"reply"`
}
