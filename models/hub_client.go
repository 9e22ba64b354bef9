package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Hub Client
//
// HubClient is the HTTP implementation of RemoteStore, talking to a hub
// instance's row endpoints. It also serves as the IdentityProvider: the
// device is "signed in" when credentials are configured, and the JWT is
// obtained lazily and re-obtained transparently on 401.
// ============================================================================

type HubClient struct {
	baseURL    string
	username   string
	password   string
	store      *Store // persists the cached token in sync_state
	httpClient *http.Client
	authToken  string
}

// NewHubClient builds a client for the hub at baseURL. A previously cached
// auth token is restored from sync_state so a restart normally skips the
// login round trip.
func NewHubClient(store *Store, baseURL, username, password string) (*HubClient, error) {
	hc := &HubClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		store:    store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	state, err := store.GetOrCreateSyncState(baseURL)
	if err != nil {
		return nil, serr.Wrap(err, "failed to initialize sync state")
	}
	if state.AuthToken.Valid && state.AuthToken.String != "" {
		hc.authToken = state.AuthToken.String
	}

	return hc, nil
}

// CurrentIdentity reports the configured account name, or empty when the
// device has no hub credentials, which callers treat as signed out.
func (hc *HubClient) CurrentIdentity(ctx context.Context) (string, error) {
	if hc.username == "" || hc.password == "" {
		return "", nil
	}
	return hc.username, nil
}

// HealthCheck verifies the hub is reachable before a pass does real work.
func (hc *HubClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL+"/api/v1/health", nil)
	if err != nil {
		return serr.Wrap(err, "failed to create health check request")
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return serr.Wrap(err, "health check request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serr.New(fmt.Sprintf("health check returned status %d", resp.StatusCode))
	}
	return nil
}

// login posts credentials to the hub's auth endpoint and caches the JWT.
func (hc *HubClient) login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": hc.username,
		"password": hc.password,
	})
	if err != nil {
		return serr.Wrap(err, "failed to marshal login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		hc.baseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return serr.Wrap(err, "failed to create login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return serr.Wrap(err, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serr.New(fmt.Sprintf("login failed with status %d", resp.StatusCode))
	}

	var apiResp struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return serr.Wrap(err, "failed to decode login response")
	}
	if !apiResp.Success || apiResp.Data.Token == "" {
		return serr.New("login response missing token")
	}

	hc.authToken = apiResp.Data.Token

	if err := hc.store.UpdateSyncAuthToken(hc.baseURL, hc.authToken); err != nil {
		logger.LogErr(err, "failed to persist auth token")
	}

	return nil
}

// doRequest sends an authenticated JSON request. On 401 it re-authenticates
// once and retries with a rebuilt body, so token expiry is invisible to
// callers. The response body is decoded into out when out is non-nil.
func (hc *HubClient) doRequest(ctx context.Context, method, path string, payload, out any) error {
	if hc.authToken == "" {
		if err := hc.login(ctx); err != nil {
			return err
		}
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return serr.Wrap(err, "failed to marshal request payload")
		}
	}

	send := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, hc.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, serr.Wrap(err, "failed to create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+hc.authToken)
		return hc.httpClient.Do(req)
	}

	resp, err := send()
	if err != nil {
		return serr.Wrap(err, "request failed")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err = hc.login(ctx); err != nil {
			return serr.Wrap(err, "re-authentication failed after 401")
		}
		resp, err = send()
		if err != nil {
			return serr.Wrap(err, "retry request failed")
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serr.New(fmt.Sprintf("hub returned status %d for %s %s", resp.StatusCode, method, path))
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return serr.Wrap(err, "failed to decode hub response")
	}
	return nil
}

// kindPath maps an option kind to its hub URL segment.
func kindPath(kind OptionKind) string {
	if kind == OptionDBMS {
		return "dbms-options"
	}
	return "tag-options"
}

// ==================================================================
// RemoteStore implementation
// ==================================================================

func (hc *HubClient) ListFunctions(ctx context.Context) ([]RemoteFunction, error) {
	var apiResp struct {
		Success bool             `json:"success"`
		Data    []RemoteFunction `json:"data"`
	}
	err := hc.doRequest(ctx, http.MethodGet, "/api/v1/hub/functions", nil, &apiResp)
	if err != nil {
		return nil, err
	}
	if !apiResp.Success {
		return nil, serr.New("hub function list returned success=false")
	}
	return apiResp.Data, nil
}

func (hc *HubClient) InsertFunction(ctx context.Context, fn RemoteFunction) (string, error) {
	var apiResp struct {
		Success bool `json:"success"`
		Data    struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := hc.doRequest(ctx, http.MethodPost, "/api/v1/hub/functions", fn, &apiResp)
	if err != nil {
		return "", err
	}
	if !apiResp.Success || apiResp.Data.ID == "" {
		return "", serr.New("hub function insert returned no id")
	}
	return apiResp.Data.ID, nil
}

func (hc *HubClient) UpdateFunction(ctx context.Context, fn RemoteFunction) error {
	path := "/api/v1/hub/functions/" + url.PathEscape(fn.ID)
	return hc.doRequest(ctx, http.MethodPut, path, fn, nil)
}

func (hc *HubClient) ListOptions(ctx context.Context, kind OptionKind) ([]RemoteOption, error) {
	var apiResp struct {
		Success bool           `json:"success"`
		Data    []RemoteOption `json:"data"`
	}
	err := hc.doRequest(ctx, http.MethodGet, "/api/v1/hub/"+kindPath(kind), nil, &apiResp)
	if err != nil {
		return nil, err
	}
	if !apiResp.Success {
		return nil, serr.New("hub option list returned success=false")
	}
	return apiResp.Data, nil
}

func (hc *HubClient) InsertOption(ctx context.Context, kind OptionKind, opt RemoteOption) (string, error) {
	var apiResp struct {
		Success bool `json:"success"`
		Data    struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := hc.doRequest(ctx, http.MethodPost, "/api/v1/hub/"+kindPath(kind), opt, &apiResp)
	if err != nil {
		return "", err
	}
	if !apiResp.Success || apiResp.Data.ID == "" {
		return "", serr.New("hub option insert returned no id")
	}
	return apiResp.Data.ID, nil
}

func (hc *HubClient) UpdateOption(ctx context.Context, kind OptionKind, opt RemoteOption) error {
	path := "/api/v1/hub/" + kindPath(kind) + "/" + url.PathEscape(opt.ID)
	return hc.doRequest(ctx, http.MethodPut, path, opt, nil)
}
