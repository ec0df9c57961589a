/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediacanvas/internal/config"
	"mediacanvas/internal/domain"
)

type recordedRequest struct {
	method, path, query, auth string
	body                      []byte
}

// fakeServer records every request and replies from canned responses keyed
// by method+path.
func fakeServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		resp, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func testClient(srvURL string) *Client {
	return NewClient(config.BackendConfig{BaseURL: srvURL + "/", TimeoutMs: 2000}, "tok123")
}

func TestClientListItemsSendsBearer(t *testing.T) {
	srv, reqs := fakeServer(t, map[string]string{
		"GET /api/items": `[{"id":"a","file_type":"image/png","x":1,"y":2,"width":10,"height":10}]`,
	})
	c := testClient(srv.URL)
	items, err := c.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" || items[0].X != 1 {
		t.Fatalf("items = %+v", items)
	}
	r := (*reqs)[0]
	if r.auth != "Bearer tok123" {
		t.Fatalf("auth header = %q", r.auth)
	}
}

func TestClientBatchPositionsIsOneRequest(t *testing.T) {
	srv, reqs := fakeServer(t, map[string]string{
		"POST /api/items/positions": `{"updated":2}`,
	})
	c := testClient(srv.URL)
	n, err := c.BatchUpdatePositions(context.Background(), []domain.PositionUpdate{
		{ID: "a", X: 30, Y: 5},
		{ID: "b", X: 180, Y: 5},
	})
	if err != nil {
		t.Fatalf("BatchUpdatePositions: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated = %d", n)
	}
	if len(*reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(*reqs))
	}
	var sent []domain.PositionUpdate
	if err := json.Unmarshal((*reqs)[0].body, &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(sent) != 2 || sent[0].ID != "a" || sent[1].X != 180 {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestClientBatchDelete(t *testing.T) {
	srv, reqs := fakeServer(t, map[string]string{
		"POST /api/items/delete": `{"deleted":2}`,
	})
	c := testClient(srv.URL)
	n, err := c.BatchDelete(context.Background(), []string{"a", "b"})
	if err != nil || n != 2 {
		t.Fatalf("BatchDelete: n=%d err=%v", n, err)
	}
	var sent struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal((*reqs)[0].body, &sent); err != nil || len(sent.IDs) != 2 {
		t.Fatalf("request body: %+v err=%v", sent, err)
	}
}

func TestClientUpdatePositionPath(t *testing.T) {
	srv, reqs := fakeServer(t, map[string]string{
		"PATCH /api/items/it-1/position": `{"id":"it-1","file_type":"image/png","x":7,"y":8,"width":10,"height":10,"position_locked":true}`,
	})
	c := testClient(srv.URL)
	it, err := c.UpdatePosition(context.Background(), domain.PositionUpdate{ID: "it-1", X: 7, Y: 8})
	if err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if it.X != 7 || !it.PositionLocked {
		t.Fatalf("item = %+v", it)
	}
	if (*reqs)[0].method != http.MethodPatch {
		t.Fatalf("method = %s", (*reqs)[0].method)
	}
}

func TestClientSearchEncodesQuery(t *testing.T) {
	srv, reqs := fakeServer(t, map[string]string{
		"GET /api/search": `{"items":[{"id":"a","file_type":"image/png","x":0,"y":0,"width":1,"height":1}],"total":1}`,
	})
	c := testClient(srv.URL)
	res, err := c.Search(context.Background(), "beach before:2024-06-01")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 || res.Items[0].ID != "a" {
		t.Fatalf("result = %+v", res)
	}
	if q := (*reqs)[0].query; q != "q=beach+before%3A2024-06-01" {
		t.Fatalf("query = %q", q)
	}
}

func TestClientFetchTokenStoresToken(t *testing.T) {
	srv, _ := fakeServer(t, map[string]string{
		"POST /api/auth/token": `{"token":"fresh.tok","expires_at":"2026-01-02T03:04:05Z"}`,
	})
	c := testClient(srv.URL)
	tok, exp, err := c.FetchToken(context.Background(), "desktop", 0)
	if err != nil {
		t.Fatalf("FetchToken: %v", err)
	}
	if tok != "fresh.tok" || c.Token != "fresh.tok" {
		t.Fatalf("token = %q client=%q", tok, c.Token)
	}
	if exp.Year() != 2026 {
		t.Fatalf("exp = %v", exp)
	}
}

func TestClientErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c := testClient(srv.URL)
	if _, err := c.ListItems(context.Background()); err == nil {
		t.Fatal("expected error on 403")
	}
}
