// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPullModelStreamsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			t.Errorf("path = %q, want /api/pull", r.URL.Path)
		}
		var req pullRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "llama3.2" {
			t.Errorf("name = %q, want llama3.2", req.Name)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"status":"pulling manifest"}` + "\n"))
		w.Write([]byte(`{"status":"downloading","total":100,"completed":50}` + "\n"))
		w.Write([]byte(`{"status":"success"}` + "\n"))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	var events []PullProgress
	ok := client.PullModel(context.Background(), "llama3.2", func(p PullProgress) {
		events = append(events, p)
	})

	if !ok {
		t.Fatal("PullModel = false, want true")
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	want := []string{"pulling manifest", "downloading", "success"}
	for i, w := range want {
		if events[i].Status != w {
			t.Errorf("event[%d].Status = %q, want %q", i, events[i].Status, w)
		}
	}
	if events[1].Completed != 50 || events[1].Total != 100 {
		t.Errorf("event[1] progress = %d/%d, want 50/100", events[1].Completed, events[1].Total)
	}
}

func TestPullModelRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	var events []PullProgress
	ok := client.PullModel(context.Background(), "no-such-model", func(p PullProgress) {
		events = append(events, p)
	})

	if ok {
		t.Error("PullModel = true, want false for HTTP 404")
	}
	if len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}
}

func TestPullModelSkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"pulling manifest"}` + "\n"))
		w.Write([]byte("not json at all\n"))
		w.Write([]byte("\n"))
		w.Write([]byte(`{"status":"success"}` + "\n"))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	var events []PullProgress
	ok := client.PullModel(context.Background(), "llama3.2", func(p PullProgress) {
		events = append(events, p)
	})

	if !ok {
		t.Fatal("PullModel = false, want true despite malformed lines")
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (malformed lines skipped)", len(events))
	}
}

func TestPullModelServerReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"pulling manifest"}` + "\n"))
		w.Write([]byte(`{"error":"model not found"}` + "\n"))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	ok := client.PullModel(context.Background(), "bogus", nil)
	if ok {
		t.Error("PullModel = true, want false when the stream reports an error")
	}
}

func TestPullModelUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := testClient(url)
	if client.PullModel(context.Background(), "llama3.2", nil) {
		t.Error("PullModel = true, want false for unreachable server")
	}
}

func TestPullModelDefaultsToConfiguredModel(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req pullRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotName = req.Name
		w.Write([]byte(`{"status":"success"}` + "\n"))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	if !client.PullModel(context.Background(), "", nil) {
		t.Fatal("PullModel = false, want true")
	}
	if gotName != "test-model" {
		t.Errorf("pulled %q, want configured model", gotName)
	}
}
