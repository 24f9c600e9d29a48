package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newspipe/internal/logger"
	"newspipe/internal/retry"
)

func init() { logger.Init() }

func newTestTelegram(baseURL string) *Telegram {
	t := NewTelegram("token", "chat-1", retry.Config{MaxAttempts: 2, Delay: time.Millisecond})
	t.baseURL = baseURL
	return t
}

func TestNewTelegramRetryConfig(t *testing.T) {
	tg := NewTelegram("token", "chat-1", retry.Config{MaxAttempts: 5, Delay: time.Second})
	if tg.retry.MaxAttempts != 5 || tg.retry.Delay != time.Second {
		t.Errorf("provided retry config not kept: %+v", tg.retry)
	}

	tg = NewTelegram("token", "chat-1", retry.Config{})
	if tg.retry.MaxAttempts != 3 || tg.retry.Delay != 2*time.Second {
		t.Errorf("zero retry config defaulted to %+v", tg.retry)
	}
}

func TestNotifySendsPhotoWhenImagePresent(t *testing.T) {
	var gotMethod string
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	err := tg.Notify(context.Background(), Notification{
		Headline: "Dam <repairs> done",
		ID:       "rec-1",
		ImageURL: "https://assets/x.png",
		Category: "economy",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.HasSuffix(gotMethod, "/sendPhoto") {
		t.Errorf("called %q, want sendPhoto", gotMethod)
	}
	caption, _ := payload["caption"].(string)
	if !strings.Contains(caption, "&lt;repairs&gt;") {
		t.Errorf("headline not HTML-escaped: %q", caption)
	}
}

func TestNotifyFallsBackToTextMessage(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/sendPhoto") {
			http.Error(w, `{"description":"wrong file identifier"}`, http.StatusBadRequest)
			return
		}
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	err := tg.Notify(context.Background(), Notification{Headline: "H", ID: "rec-2", ImageURL: "bad"})
	if err != nil {
		t.Fatalf("text fallback should succeed: %v", err)
	}
	last := paths[len(paths)-1]
	if !strings.HasSuffix(last, "/sendMessage") {
		t.Errorf("last call %q, want sendMessage fallback", last)
	}
}

func TestNotifyTextOnlyWithoutImage(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	if err := tg.Notify(context.Background(), Notification{Headline: "H", ID: "rec-3"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.HasSuffix(gotMethod, "/sendMessage") {
		t.Errorf("called %q, want sendMessage", gotMethod)
	}
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	if err := tg.Notify(context.Background(), Notification{Headline: "H", ID: "rec-4"}); err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestNotifyDoesNotRetryBadRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	if err := tg.Notify(context.Background(), Notification{Headline: "H", ID: "rec-5"}); err == nil {
		t.Fatal("expected error on HTTP 400")
	}
	if calls != 1 {
		t.Errorf("calls = %d, 4xx must not be retried", calls)
	}
}
