package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// ResolveResult classifies a config fetch from the device's point of view.
type ResolveResult int

const (
	// ResolveFresh means a full snapshot was returned.
	ResolveFresh ResolveResult = iota
	// ResolveNotModified means the known version is still current.
	ResolveNotModified
	// ResolveNoContent means the server has no config for the screen.
	ResolveNoContent
)

// PairingAPI is the device-side view of the pairing broker.
type PairingAPI interface {
	RegisterPairing(ctx context.Context, tempDeviceID, code string, ttlMinutes int, deviceInfo json.RawMessage) (bool, error)
	PairingStatus(ctx context.Context, tempDeviceID string) (models.PairingStatusResponse, error)
}

// ConfigAPI is the device-side view of the config resolver.
type ConfigAPI interface {
	ResolveConfig(ctx context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, ResolveResult, error)
	ScreenExists(ctx context.Context, screenID string) (bool, error)
}

// AssetAPI retrieves raw asset bytes, directly or via a signed URL.
type AssetAPI interface {
	FetchAsset(ctx context.Context, reference string) (io.ReadCloser, error)
}

// BackendAPI is everything the agent needs from the server side.
type BackendAPI interface {
	PairingAPI
	ConfigAPI
	AssetAPI
}

// Client is the HTTP implementation of BackendAPI.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient builds a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// RegisterPairing reserves a code. The first return value is false without
// error when the code is already taken by a concurrent session.
func (c *Client) RegisterPairing(ctx context.Context, tempDeviceID, code string, ttlMinutes int, deviceInfo json.RawMessage) (bool, error) {
	body, err := json.Marshal(models.PairingRegisterRequest{
		TempDeviceID: tempDeviceID,
		Code:         code,
		TTLMinutes:   ttlMinutes,
		DeviceInfo:   deviceInfo,
	})
	if err != nil {
		return false, fmt.Errorf("failed to serialize register payload: %w", err)
	}

	resp, err := c.post(ctx, "/api/v1/pairing/register", body)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, fmt.Errorf("register failed with status %d", resp.StatusCode)
	}
}

// PairingStatus polls for a confirmed assignment.
func (c *Client) PairingStatus(ctx context.Context, tempDeviceID string) (models.PairingStatusResponse, error) {
	var status models.PairingStatusResponse

	resp, err := c.get(ctx, "/api/v1/pairing/status/"+url.PathEscape(tempDeviceID))
	if err != nil {
		return status, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("status poll failed with status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("failed to parse status response: %w", err)
	}

	return status, nil
}

// ResolveConfig performs the conditional config fetch.
func (c *Client) ResolveConfig(ctx context.Context, screenID string, knownVersion int64) (*models.ConfigSnapshot, ResolveResult, error) {
	path := "/api/v1/screens/" + url.PathEscape(screenID) + "/config?known_version=" + strconv.FormatInt(knownVersion, 10)

	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, ResolveNoContent, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, ResolveNotModified, nil
	case http.StatusNoContent:
		return nil, ResolveNoContent, nil
	case http.StatusOK:
		var snap models.ConfigSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return nil, ResolveNoContent, fmt.Errorf("failed to parse config snapshot: %w", err)
		}
		return &snap, ResolveFresh, nil
	default:
		return nil, ResolveNoContent, fmt.Errorf("config fetch failed with status %d", resp.StatusCode)
	}
}

// ScreenExists asks whether the server still recognizes the screen id.
func (c *Client) ScreenExists(ctx context.Context, screenID string) (bool, error) {
	resp, err := c.get(ctx, "/api/v1/screens/"+url.PathEscape(screenID))
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("existence check failed with status %d", resp.StatusCode)
	}
}

// FetchAsset streams the named asset. Absolute references (signed URLs) are
// fetched directly; bare names go through the server's asset route, which
// redirects to a signed URL.
func (c *Client) FetchAsset(ctx context.Context, reference string) (io.ReadCloser, error) {
	target := reference
	if !strings.Contains(reference, "://") {
		target = c.baseURL + "/api/v1/assets/" + url.PathEscape(reference)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return nil, fmt.Errorf("asset fetch failed with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// drain discards the remaining body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
