package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
)

const (
	DefaultRepository = "envases-y-soluciones"
	PageSize          = 100

	errorBodyReadLimit int64 = 1024
)

// ErrNotFound is returned by ByUID when no document matches.
var ErrNotFound = errors.New("prismic document not found")

var errRepositoryRequired = errors.New("prismic repository name is required")

// Document is a Prismic document with its data left raw for the caller to normalize.
type Document struct {
	ID                  string          `json:"id"`
	UID                 string          `json:"uid,omitempty"`
	Type                string          `json:"type"`
	Tags                []string        `json:"tags,omitempty"`
	Slugs               []string        `json:"slugs,omitempty"`
	Lang                string          `json:"lang,omitempty"`
	LastPublicationDate string          `json:"last_publication_date,omitempty"`
	Data                json.RawMessage `json:"data"`
}

// Client reads published documents from the Prismic REST v2 API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API endpoint derived from the repository name.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = strings.TrimSpace(token)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(repository string, opts ...Option) (*Client, error) {
	repository = strings.TrimSpace(repository)
	if repository == "" {
		return nil, errRepositoryRequired
	}
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    fmt.Sprintf("https://%s.cdn.prismic.io/api/v2", repository),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// MasterRef returns the ref of the currently published content release.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	var apiResp struct {
		Refs []struct {
			ID          string `json:"id"`
			Ref         string `json:"ref"`
			IsMasterRef bool   `json:"isMasterRef"`
		} `json:"refs"`
	}
	if err := c.get(ctx, c.baseURL, nil, &apiResp); err != nil {
		return "", err
	}
	for _, ref := range apiResp.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "prismic master ref missing")
}

type searchResponse struct {
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Results    []Document `json:"results"`
}

// AllByType returns every document of docType, following pagination.
func (c *Client) AllByType(ctx context.Context, docType string) ([]Document, error) {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, err
	}
	predicate := fmt.Sprintf(`[[at(document.type,%q)]]`, docType)

	var docs []Document
	for page := 1; ; page++ {
		resp, err := c.search(ctx, ref, predicate, page, PageSize)
		if err != nil {
			return nil, err
		}
		docs = append(docs, resp.Results...)
		if page >= resp.TotalPages || len(resp.Results) == 0 {
			break
		}
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// ByUID returns the document of docType with the given uid, or ErrNotFound.
func (c *Client) ByUID(ctx context.Context, docType, uid string) (*Document, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrNotFound
	}
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, err
	}
	predicate := fmt.Sprintf(`[[at(my.%s.uid,%q)]]`, docType, uid)
	resp, err := c.search(ctx, ref, predicate, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	doc := resp.Results[0]
	return &doc, nil
}

func (c *Client) search(ctx context.Context, ref, predicate string, page, pageSize int) (*searchResponse, error) {
	query := url.Values{}
	query.Set("ref", ref)
	query.Set("q", predicate)
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var resp searchResponse
	if err := c.get(ctx, c.baseURL+"/documents/search", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "prismic client not configured")
	}
	if query == nil {
		query = url.Values{}
	}
	if c.accessToken != "" {
		query.Set("access_token", c.accessToken)
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build prismic request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute prismic request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "prismic request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode prismic response")
	}
	return nil
}
