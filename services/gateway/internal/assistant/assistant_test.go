package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_NoFile(t *testing.T) {
	assert.Equal(t, "why?", BuildPrompt("why?", nil))
}

func TestBuildPrompt_FencesFile(t *testing.T) {
	got := BuildPrompt("fix it", &types.File{Name: "main.go", Language: "go", Content: "package main"})

	assert.Contains(t, got, "```go\npackage main\n```")
	assert.Contains(t, got, `"main.go"`)
	assert.True(t, strings.HasSuffix(got, "fix it"))
	assert.NotContains(t, got, "truncated")
}

func TestBuildPrompt_TruncatesLongFiles(t *testing.T) {
	content := strings.Repeat("é", MaxContextChars+10)

	got := BuildPrompt("explain", &types.File{Name: "big.txt", Language: "plaintext", Content: content})

	assert.Contains(t, got, "truncated")
	assert.Equal(t, MaxContextChars, strings.Count(got, "é"))
}

func TestHistoryFromMessages_KeepsNewest(t *testing.T) {
	var msgs []*types.Message
	for i := 0; i < HistoryLimit+5; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		msgs = append(msgs, &types.Message{Role: role, Text: fmt.Sprintf("m%d", i)})
	}

	turns := HistoryFromMessages(msgs)

	require.Len(t, turns, HistoryLimit)
	assert.Equal(t, "m5", turns[0].Text)
	assert.Equal(t, fmt.Sprintf("m%d", HistoryLimit+4), turns[len(turns)-1].Text)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	assert.True(t, errors.Is(err, types.ErrAssistantDisabled))
}
