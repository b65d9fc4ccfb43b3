package pushover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotify_PostsForm(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		got = map[string]string{
			"token":   r.PostForm.Get("token"),
			"user":    r.PostForm.Get("user"),
			"message": r.PostForm.Get("message"),
			"title":   r.PostForm.Get("title"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClientWithURL("tok", "usr", server.URL)
	if err := client.Notify(context.Background(), "Opened Spotify (https://open.spotify.com/)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"token":   "tok",
		"user":    "usr",
		"message": "Opened Spotify (https://open.spotify.com/)",
		"title":   "Voice Commands",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestNotify_SkipsWithoutCredentials(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClientWithURL("", "usr", server.URL)
	if err := client.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected no request without a token")
	}
}

func TestNotify_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClientWithURL("tok", "usr", server.URL)
	if err := client.Notify(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
