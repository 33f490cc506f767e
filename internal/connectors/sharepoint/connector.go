// Package sharepoint provides a Microsoft Graph deck source for
// SharePoint document libraries.
package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
	"github.com/custodia-labs/deckhand-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.RemoteSource = (*Connector)(nil)

// DefaultGraphURL is the Microsoft Graph v1.0 endpoint.
const DefaultGraphURL = "https://graph.microsoft.com/v1.0"

// Config holds the SharePoint connection settings.
type Config struct {
	// TenantID is the Azure AD tenant.
	TenantID string

	// ClientID and ClientSecret identify the registered application.
	// App-only (client credentials) auth; no user interaction.
	ClientID     string
	ClientSecret string

	// DriveID is the document library drive to ingest.
	DriveID string

	// FolderPath restricts ingestion to a folder subtree. Empty means
	// the drive root.
	FolderPath string

	// GraphURL overrides the Graph endpoint, for testing.
	GraphURL string

	// TokenURL overrides the token endpoint, for testing.
	TokenURL string

	// RateLimit overrides the default request pacing.
	RateLimit RateLimitConfig
}

// Connector lists and fetches decks from a SharePoint drive.
type Connector struct {
	client   *http.Client
	graphURL string
	driveID  string
	folder   string
	limiter  *RateLimiter
}

// New creates a SharePoint connector. The client credentials flow is
// lazy: no token is requested until the first Graph call.
func New(ctx context.Context, cfg Config) (*Connector, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: tenant_id, client_id and client_secret are required", domain.ErrInvalidInput)
	}
	if cfg.DriveID == "" {
		return nil, fmt.Errorf("%w: drive_id is required", domain.ErrInvalidInput)
	}

	graphURL := strings.TrimRight(cfg.GraphURL, "/")
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	return &Connector{
		client:   creds.Client(ctx),
		graphURL: graphURL,
		driveID:  cfg.DriveID,
		folder:   strings.Trim(cfg.FolderPath, "/"),
		limiter:  NewRateLimiter(cfg.RateLimit),
	}, nil
}

// Name returns the connector type identifier.
func (c *Connector) Name() string {
	return "sharepoint"
}

// Validate checks the drive is reachable with the configured
// credentials.
func (c *Connector) Validate(ctx context.Context) error {
	var drive struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/drives/%s", c.driveID)
	if err := c.get(ctx, c.graphURL+path, &drive); err != nil {
		return fmt.Errorf("validating drive %s: %w", c.driveID, err)
	}
	return nil
}

// driveItem is the subset of the Graph driveItem resource we read.
type driveItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModifiedDateTime"`
	Folder       *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
}

// childrenPage is one page of a children listing.
type childrenPage struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// List walks the configured folder subtree and returns every deck's
// metadata. Folders are traversed breadth-first; listing pages follow
// @odata.nextLink.
func (c *Connector) List(ctx context.Context) ([]domain.Deck, error) {
	root := fmt.Sprintf("%s/drives/%s/root", c.graphURL, c.driveID)
	if c.folder != "" {
		root = fmt.Sprintf("%s/drives/%s/root:/%s:", c.graphURL, c.driveID, c.folder)
	}

	var decks []domain.Deck
	queue := []string{root + "/children?$top=200"}

	for len(queue) > 0 {
		url := queue[0]
		queue = queue[1:]

		var page childrenPage
		if err := c.get(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("listing decks: %w", err)
		}

		for _, item := range page.Value {
			if item.Folder != nil {
				child := fmt.Sprintf("%s/drives/%s/items/%s/children?$top=200", c.graphURL, c.driveID, item.ID)
				queue = append(queue, child)
				continue
			}
			if strings.HasPrefix(item.Name, "~$") {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(item.Name), ".pptx") {
				continue
			}
			decks = append(decks, domain.Deck{
				RemoteID:   item.ID,
				Name:       item.Name,
				ModifiedAt: item.LastModified.UTC(),
				Size:       item.Size,
			})
		}
		if page.NextLink != "" {
			queue = append(queue, page.NextLink)
		}
	}

	logger.Debug("sharepoint listing: %d decks", len(decks))
	return decks, nil
}

// Fetch streams the bytes of one deck. Graph answers /content with a
// redirect to a pre-authenticated download URL, which the client
// follows.
func (c *Connector) Fetch(ctx context.Context, remoteID string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/drives/%s/items/%s/content", c.graphURL, c.driveID, remoteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching deck %s: %w", remoteID, err)
	}
	if err := c.checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching deck %s: %w", remoteID, err)
	}
	return resp.Body, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// get performs a rate-limited GET and decodes the JSON response.
func (c *Connector) get(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding graph response: %w", err)
	}
	return nil
}

// checkStatus maps Graph error responses to domain errors.
func (c *Connector) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitError(retryAfter)
		return domain.ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
