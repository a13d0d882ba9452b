package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	c := NewClient(url, "key", "", 2*time.Second, zap.NewNop())
	c.backoff = time.Millisecond
	return c
}

func TestExecute_SendsSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" || r.URL.Query().Get("wait") != "true" || r.URL.Query().Get("base64_encoded") != "false" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if r.Header.Get("X-Auth-Token") != "key" {
			t.Errorf("missing auth token header")
		}

		var sub Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if sub.LanguageID != 71 || sub.SourceCode != "print(input())" || sub.Stdin != "hi" {
			t.Errorf("unexpected submission %+v", sub)
		}

		w.Write([]byte(`{"stdout":"hi\n","stderr":null,"compile_output":null,"message":null,"time":"0.012","memory":3100,"exit_code":0,"status":{"id":3,"description":"Accepted"}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Execute(context.Background(), Submission{SourceCode: "print(input())", LanguageID: 71, Stdin: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status.ID != StatusAccepted || res.Stdout != "hi\n" || res.Stderr != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 || res.Time != "0.012" || res.Memory != 3100 {
		t.Fatalf("unexpected stats %+v", res)
	}
}

func TestExecute_RapidAPIHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "key" || r.Header.Get("X-RapidAPI-Host") != "judge0-ce.p.rapidapi.com" {
			t.Errorf("missing rapidapi headers")
		}
		w.Write([]byte(`{"status":{"id":3}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "judge0-ce.p.rapidapi.com", time.Second, zap.NewNop())
	if _, err := c.Execute(context.Background(), Submission{LanguageID: 71}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"status":{"id":6,"description":"Compilation Error"},"compile_output":"boom"}`))
		}
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Execute(context.Background(), Submission{LanguageID: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status.ID != StatusCompilationError || res.CompileOutput != "boom" {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestExecute_GivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Execute(context.Background(), Submission{LanguageID: 60})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestExecute_DoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"language_id":["language with id 999 doesn't exist"]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Execute(context.Background(), Submission{LanguageID: 999})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestExecute_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Execute(ctx, Submission{LanguageID: 60})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
