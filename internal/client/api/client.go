// Package api is the same-origin JSON client for the field-service
// backend. All requests are credentialed (cookie jar) and mutating
// calls carry the anti-forgery token header sourced from the cookie.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

const (
	pingPath         = "/api/pwa/ping/"
	catalogDumpPath  = "/api/pwa/catalog/dump/"
	workOrderDump    = "/api/pwa/workorders/dump/"
	reportSavePath   = "/api/pwa/servicereport/save/"
	protocolSavePath = "/api/pwa/maintenanceprotocol/save/"

	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"
)

type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient builds a client for the given base URL ("https://host").
// The returned client owns a cookie jar; session and CSRF cookies set
// by the server are replayed on subsequent calls.
func NewClient(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{base: base, http: &http.Client{Jar: jar}}, nil
}

// HTTPClient exposes the underlying client so the shell cache
// controller can share the session cookies.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// BaseURL returns a copy of the configured base URL.
func (c *Client) BaseURL() url.URL {
	return *c.base
}

func (c *Client) csrfToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == csrfCookie {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if token := c.csrfToken(); token != "" {
			req.Header.Set(csrfHeader, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Path: path}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}

// Ping checks server liveness. Any error (status, transport, timeout
// via ctx) means unreachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, pingPath, nil, nil)
}

// CatalogDump fetches the full sites+systems catalog.
func (c *Client) CatalogDump(ctx context.Context) (*models.CatalogDump, error) {
	var dump models.CatalogDump
	if err := c.do(ctx, http.MethodGet, catalogDumpPath, nil, &dump); err != nil {
		return nil, err
	}
	return &dump, nil
}

// WorkOrderDump fetches the full work-order list.
func (c *Client) WorkOrderDump(ctx context.Context) ([]models.WorkOrder, error) {
	var dump models.WorkOrderDump
	if err := c.do(ctx, http.MethodGet, workOrderDump, nil, &dump); err != nil {
		return nil, err
	}
	return dump.WorkOrders, nil
}

// SaveServiceReport posts a full service-report field map. Date fields
// must already be normalized by the caller.
func (c *Client) SaveServiceReport(ctx context.Context, p models.ReportSavePayload) error {
	return c.do(ctx, http.MethodPost, reportSavePath, p, nil)
}

// SaveMaintenanceProtocol posts a full maintenance-protocol field map.
func (c *Client) SaveMaintenanceProtocol(ctx context.Context, p models.ProtocolSavePayload) error {
	return c.do(ctx, http.MethodPost, protocolSavePath, p, nil)
}

// SetWorkOrderStatus posts a status change and returns the server's
// canonical status code and label.
func (c *Client) SetWorkOrderStatus(ctx context.Context, id int64, status string) (*models.StatusResult, error) {
	var result models.StatusResult
	path := fmt.Sprintf("/api/pwa/workorders/%d/set-status/", id)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"status": status}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
