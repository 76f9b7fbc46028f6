package gcs

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

const (
	defaultAPIBase = "https://storage.googleapis.com"
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
	pathScheme     = "gs://"
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client archives quote PDFs through the Cloud Storage JSON API.
type Client struct {
	httpClient    *http.Client
	apiBase       string
	defaultBucket string
	tokens        *tokenSource
	signer        *serviceAccount
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient authenticates with service account JSON when one is configured,
// otherwise with the metadata server, and checks bucket access before
// returning.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	creds, err := credentialsJSON(gcp)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		apiBase:       defaultAPIBase,
		defaultBucket: cfg.BucketName,
	}
	if creds == "" {
		c.tokens = metadataTokens(c.httpClient)
	} else if c.signer, err = parseServiceAccount(creds); err != nil {
		return nil, err
	} else {
		c.tokens = c.signer.tokens(c.httpClient)
	}

	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return c, nil
}

func credentialsJSON(gcp config.GCPConfig) (string, error) {
	if gcp.CredentialsJSON != "" || gcp.ApplicationCredentials == "" {
		return gcp.CredentialsJSON, nil
	}
	raw, err := os.ReadFile(gcp.ApplicationCredentials)
	if err != nil {
		return "", fmt.Errorf("reading credentials file: %w", err)
	}
	return string(raw), nil
}

func (c *Client) Close() error { return nil }

// Ping lists at most one object of the default bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := c.apiBase + "/storage/v1/b/" + url.PathEscape(c.defaultBucket) + "/o?maxResults=1"
	return c.call(ctx, http.MethodGet, endpoint, "", nil, "gcs object check failed")
}

// Upload stores data and returns its gs:// path. An empty bucket means the
// default one.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	if c == nil || c.tokens == nil {
		return "", errNotInitialized
	}
	bucket, err := c.target(bucket, object)
	if err != nil {
		return "", err
	}

	q := url.Values{"uploadType": {"media"}, "name": {object}}
	endpoint := c.apiBase + "/upload/storage/v1/b/" + url.PathEscape(bucket) + "/o?" + q.Encode()
	if err := c.call(ctx, http.MethodPost, endpoint, contentType, data, "gcs upload failed"); err != nil {
		return "", err
	}
	return pathScheme + bucket + "/" + object, nil
}

// SignedReadURL builds a V2 signed GET link. Only service account
// credentials can sign.
func (c *Client) SignedReadURL(bucket, object string, ttl time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("service account credentials required for signed urls")
	}
	bucket, err := c.target(bucket, object)
	if err != nil {
		return "", err
	}

	expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	resource := "/" + bucket + "/" + escapeObject(object)
	sig, err := jwt.SigningMethodRS256.Sign("GET\n\n\n"+expires+"\n"+resource, c.signer.key)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}
	q := url.Values{
		"GoogleAccessId": {c.signer.email},
		"Expires":        {expires},
		"Signature":      {base64.StdEncoding.EncodeToString(sig)},
	}
	return defaultAPIBase + resource + "?" + q.Encode(), nil
}

// SplitPath breaks a gs://bucket/object path into its parts.
func SplitPath(path string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(path, pathScheme)
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

func (c *Client) target(bucket, object string) (string, error) {
	if object == "" {
		return "", errors.New("object name required")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	return bucket, nil
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

// call sends an authorized request and turns any non-2xx answer into an error
// carrying the start of the response body.
func (c *Client) call(ctx context.Context, method, endpoint, contentType string, body []byte, failure string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if text := strings.TrimSpace(string(snippet)); text != "" {
		return fmt.Errorf("%s: %s: %s", failure, resp.Status, text)
	}
	return fmt.Errorf("%s: %s", failure, resp.Status)
}
