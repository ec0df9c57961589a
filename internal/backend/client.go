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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediacanvas/internal/config"
	"mediacanvas/internal/domain"
	"mediacanvas/internal/search"
	"mediacanvas/internal/storage"
)

// Client is the HTTP client for the sync server. The desktop app uses it
// behind a feature flag; every engine batch maps to one request.
type Client struct {
	BaseURL string
	Token   string // bearer token, normally from the OS keyring
	client  *http.Client
}

// NewClient creates a client from the backend section of the user config.
// The base URL may include a trailing slash; it will be normalized.
func NewClient(cfg config.BackendConfig, token string) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if cfg.TLSInsecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Token:   token,
		client:  hc,
	}
}

// doJSON issues one request. body (if non-nil) is JSON-encoded; the response
// is decoded into dest (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// FetchToken asks the server for a fresh bearer token and stores it on the
// client for subsequent calls.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (string, time.Time, error) {
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &resp); err != nil {
		return "", time.Time{}, err
	}
	exp, _ := time.Parse(time.RFC3339, resp.ExpiresAt)
	c.Token = resp.Token
	return resp.Token, exp, nil
}

// ListItems returns all items on the server board.
func (c *Client) ListItems(ctx context.Context) ([]domain.MediaItem, error) {
	var items []domain.MediaItem
	if err := c.doJSON(ctx, http.MethodGet, "/api/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches a single item by id.
func (c *Client) GetItem(ctx context.Context, id string) (domain.MediaItem, error) {
	var it domain.MediaItem
	err := c.doJSON(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, &it)
	return it, err
}

// UpdateItemMeta patches item metadata; nil fields are left unchanged.
func (c *Client) UpdateItemMeta(ctx context.Context, id string, meta ItemMetaUpdate) (domain.MediaItem, error) {
	var it domain.MediaItem
	err := c.doJSON(ctx, http.MethodPatch, "/api/items/"+url.PathEscape(id), meta, &it)
	return it, err
}

// UpdatePosition persists one finished single drag.
func (c *Client) UpdatePosition(ctx context.Context, up domain.PositionUpdate) (domain.MediaItem, error) {
	var it domain.MediaItem
	path := "/api/items/" + url.PathEscape(up.ID) + "/position"
	err := c.doJSON(ctx, http.MethodPatch, path, up, &it)
	return it, err
}

// BatchUpdatePositions persists one finished group drag as a single request;
// it returns the number of rows the server updated.
func (c *Client) BatchUpdatePositions(ctx context.Context, updates []domain.PositionUpdate) (int64, error) {
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/items/positions", updates, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// BatchDelete removes the given items in one request and returns the number
// of rows the server deleted.
func (c *Client) BatchDelete(ctx context.Context, ids []string) (int64, error) {
	req := map[string]any{"ids": ids}
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/items/delete", req, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// Search runs a server-side query with the same token syntax and proximity
// semantics as the local engine search.
func (c *Client) Search(ctx context.Context, q string) (search.Result, error) {
	var res search.Result
	err := c.doJSON(ctx, http.MethodGet, "/api/search?q="+url.QueryEscape(q), nil, &res)
	return res, err
}

// StorageInfo returns server-side storage accounting.
func (c *Client) StorageInfo(ctx context.Context) (storage.UsageInfo, error) {
	var info storage.UsageInfo
	err := c.doJSON(ctx, http.MethodGet, "/api/storage", nil, &info)
	return info, err
}
