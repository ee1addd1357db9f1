package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	lookupAttempts = 3
	lookupBackoff  = 200 * time.Millisecond
)

var errAbsent = errors.New("resource absent")

// IdentityService is the external identity/achievement platform that keeps
// per-wallet profiles, stats and badges for the game project.
type IdentityService interface {
	EnsureProject(ctx context.Context) error
	EnsureProfile(ctx context.Context, wallet string) error
	UpdateStats(ctx context.Context, wallet string, stats map[string]int64) error
	AwardBadge(ctx context.Context, wallet string, badgeIndex int) error
}

type IdentityClient struct {
	BaseURL     string
	Token       string
	ProjectName string
	BadgeCount  int
	Client      *http.Client

	project string // resolved project address
}

type projectResponse struct {
	Project struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"project"`
}

func NewIdentityClient(baseURL, token, projectName string, badgeCount int) *IdentityClient {
	return &IdentityClient{
		BaseURL:     baseURL,
		Token:       token,
		ProjectName: projectName,
		BadgeCount:  badgeCount,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EnsureProject looks the project up by name and creates it only when the
// service confirms it is absent. A "already exists" answer to the create is
// treated as success and followed by another lookup.
func (c *IdentityClient) EnsureProject(ctx context.Context) error {
	lookup := func(ctx context.Context) (string, error) {
		var out projectResponse
		err := c.do(ctx, http.MethodGet, "/projects?name="+url.QueryEscape(c.ProjectName), nil, &out)
		return out.Project.Address, err
	}

	address, err := retryOperation(ctx, lookupAttempts, lookupBackoff, lookup)
	if err == nil {
		c.project = address
		log.Printf("✅ [IDENTITY] Using existing project %q (%s)", c.ProjectName, address)
		return nil
	}
	if !errors.Is(err, errAbsent) {
		return fmt.Errorf("%w: project lookup: %v", ErrExternalService, err)
	}

	var created projectResponse
	body := map[string]any{"name": c.ProjectName, "badgeCount": c.BadgeCount}
	err = c.do(ctx, http.MethodPost, "/projects", body, &created)
	switch {
	case err == nil:
		c.project = created.Project.Address
		log.Printf("🆕 [IDENTITY] Created project %q (%s)", c.ProjectName, c.project)
		return nil
	case errors.Is(err, errAlreadyExists):
		address, err = retryOperation(ctx, lookupAttempts, lookupBackoff, lookup)
		if err != nil {
			return fmt.Errorf("%w: project lookup after create: %v", ErrExternalService, err)
		}
		c.project = address
		return nil
	default:
		return fmt.Errorf("%w: project create: %v", ErrExternalService, err)
	}
}

// EnsureProfile creates the wallet's profile in the project unless it exists.
func (c *IdentityClient) EnsureProfile(ctx context.Context, wallet string) error {
	path := fmt.Sprintf("/projects/%s/profiles/%s", url.PathEscape(c.project), url.PathEscape(wallet))
	_, err := retryOperation(ctx, lookupAttempts, lookupBackoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, path, nil, nil)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, errAbsent) {
		return fmt.Errorf("%w: profile lookup: %v", ErrExternalService, err)
	}

	err = c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/profiles", url.PathEscape(c.project)), map[string]any{"wallet": wallet}, nil)
	if err != nil && !errors.Is(err, errAlreadyExists) {
		return fmt.Errorf("%w: profile create: %v", ErrExternalService, err)
	}
	return nil
}

func (c *IdentityClient) UpdateStats(ctx context.Context, wallet string, stats map[string]int64) error {
	path := fmt.Sprintf("/projects/%s/profiles/%s/stats", url.PathEscape(c.project), url.PathEscape(wallet))
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"stats": stats}, nil); err != nil {
		return fmt.Errorf("%w: stats update: %v", ErrExternalService, err)
	}
	return nil
}

func (c *IdentityClient) AwardBadge(ctx context.Context, wallet string, badgeIndex int) error {
	path := fmt.Sprintf("/projects/%s/profiles/%s/badges", url.PathEscape(c.project), url.PathEscape(wallet))
	err := c.do(ctx, http.MethodPost, path, map[string]any{"badgeIndex": badgeIndex}, nil)
	if err != nil && !errors.Is(err, errAlreadyExists) {
		return fmt.Errorf("%w: badge award: %v", ErrExternalService, err)
	}
	return nil
}

var errAlreadyExists = errors.New("resource already exists")

// do performs one JSON request. 404 maps to errAbsent and 409 to
// errAlreadyExists, both permanent so retries stop.
func (c *IdentityClient) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return permanent(err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return permanent(errAbsent)
	case resp.StatusCode == http.StatusConflict:
		return permanent(errAlreadyExists)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return permanent(fmt.Errorf("identity service %s %s returned %d: %s", method, path, resp.StatusCode, string(body)))
	case resp.StatusCode >= 500:
		return fmt.Errorf("identity service %s %s returned %d", method, path, resp.StatusCode)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return permanent(fmt.Errorf("failed to decode identity response: %w", err))
		}
	}
	return nil
}
