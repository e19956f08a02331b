package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmca/fip/internal/config"
	"github.com/rmca/fip/internal/runtime"
)

func newTestServer(t *testing.T) (*runtime.Runtime, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	rt, err := runtime.Open(context.Background(), runtime.Options{Config: cfg, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	ts := httptest.NewServer(New(rt).Handler())
	t.Cleanup(ts.Close)
	return rt, ts
}

func submit(t *testing.T, ts *httptest.Server, data string) *http.Response {
	t.Helper()
	form := url.Values{}
	form.Set("data", data)
	resp, err := http.PostForm(ts.URL+"/submit", form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestSubmitAccepted(t *testing.T) {
	_, ts := newTestServer(t)
	resp := submit(t, ts, `{"k":"v"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("body: %v", body)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)

	// No data field at all.
	resp, err := http.PostForm(ts.URL+"/submit", url.Values{})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["code"] != float64(1000) {
		t.Fatalf("code: %v", body["code"])
	}

	resp = submit(t, ts, "not json")
	if body := decodeBody(t, resp); body["code"] != float64(1001) {
		t.Fatalf("code: %v", body["code"])
	}

	// A present but empty data field is invalid JSON, not a missing field.
	resp = submit(t, ts, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["code"] != float64(1001) {
		t.Fatalf("code: %v", body["code"])
	}

	resp = submit(t, ts, `{"k":"`+strings.Repeat("x", 2000)+`"}`)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["code"] != float64(1002) {
		t.Fatalf("code: %v", body["code"])
	}
}

func TestRecordsPagination(t *testing.T) {
	rt, ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Consumer().Run(ctx) }()

	const docs = 12
	for i := 0; i < docs; i++ {
		resp := submit(t, ts, fmt.Sprintf(`{"n":%d}`, i))
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("submit %d: %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Wait for the consumer to drain the queue.
	deadline := time.After(10 * time.Second)
	var firstPage map[string]any
	for {
		resp, err := http.Get(ts.URL + "/records")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		firstPage = decodeBody(t, resp)
		if _, hasNext := firstPage["next"].(string); firstPage["count"] == float64(10) && hasNext {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first page count: %v", firstPage["count"])
		case <-time.After(50 * time.Millisecond):
		}
	}

	next, ok := firstPage["next"].(string)
	if !ok || next == "" {
		t.Fatalf("first page next: %v", firstPage["next"])
	}

	resp, err := http.Get(ts.URL + "/records?next=" + url.QueryEscape(next))
	if err != nil {
		t.Fatalf("get page 2: %v", err)
	}
	second := decodeBody(t, resp)
	if second["count"] != float64(2) {
		t.Fatalf("second page count: %v", second["count"])
	}
	if second["next"] != nil {
		t.Fatalf("second page next: %v", second["next"])
	}

	total := len(firstPage["results"].([]any)) + len(second["results"].([]any))
	if total != docs {
		t.Fatalf("records across pages: %d", total)
	}
}

func TestTenDocumentsFitOnePage(t *testing.T) {
	rt, ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Consumer().Run(ctx) }()

	want := map[float64]bool{}
	for i := 0; i < 10; i++ {
		resp := submit(t, ts, fmt.Sprintf(`{"n":%d}`, i))
		resp.Body.Close()
		want[float64(i)] = true
	}

	deadline := time.After(10 * time.Second)
	var page map[string]any
	for {
		resp, err := http.Get(ts.URL + "/records")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		page = decodeBody(t, resp)
		if page["count"] == float64(10) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("count: %v", page["count"])
		case <-time.After(50 * time.Millisecond):
		}
	}
	if page["next"] != nil {
		t.Fatalf("next on a complete single page: %v", page["next"])
	}
	for _, raw := range page["results"].([]any) {
		row := raw.(map[string]any)
		var doc map[string]any
		if err := json.Unmarshal([]byte(row["data"].(string)), &doc); err != nil {
			t.Fatalf("stored data is not the original JSON: %v", err)
		}
		n, ok := doc["n"].(float64)
		if !ok || !want[n] {
			t.Fatalf("unexpected document: %v", doc)
		}
		delete(want, n)
	}
	if len(want) != 0 {
		t.Fatalf("documents missing from page: %v", want)
	}
}

func TestRecordsInvalidNextToken(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/records?next=garbage")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["code"] != float64(1100) {
		t.Fatalf("code: %v", body["code"])
	}
}

func TestHealthReportsNoOpenCircuits(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); len(body) != 0 {
		t.Fatalf("open circuits at startup: %v", body)
	}
}

func TestDocumentationListsRoutes(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/documentation")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	routes, ok := body["routes"].([]any)
	if !ok || len(routes) == 0 {
		t.Fatalf("routes: %v", body)
	}
}

func TestStreamDeliversSubmittedDocuments(t *testing.T) {
	rt, ts := newTestServer(t)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go func() { _ = rt.Fanout().Run(hubCtx) }()
	// Let the hub attach to the bus before anything is published.
	time.Sleep(50 * time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/stream", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	sub := submit(t, ts, `{"live":true}`)
	sub.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line != `data: {"live":true}` {
			t.Fatalf("event: %q", line)
		}
		return
	}
}
