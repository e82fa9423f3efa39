package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const registryContentType = "application/vnd.schemaregistry.v1+json"

// Registry error codes for an unknown subject and for a schema not yet
// registered under a known subject.
const (
	codeSubjectNotFound = 40401
	codeSchemaNotFound  = 40403
)

// RegistryError is an error response from the schema registry.
type RegistryError struct {
	Status  int    `json:"-"`
	Code    int    `json:"error_code"`
	Message string `json:"message"`
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("schema registry: status %d code %d: %s", e.Status, e.Code, e.Message)
}

func (e *RegistryError) notRegistered() bool {
	return e.Code == codeSubjectNotFound || e.Code == codeSchemaNotFound
}

// SchemaRegistryClient resolves the IDs of the JSON schemas describing wallet
// and walk events against a Confluent-compatible registry.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient constructs a client for the registry at baseURL.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type schemaRequest struct {
	SchemaType string `json:"schemaType"`
	Schema     string `json:"schema"`
}

type schemaResponse struct {
	ID int `json:"id"`
}

// EnsureSchema returns the ID the registry holds for this exact schema under
// subject, registering it as a new version when it is not there yet.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	path := "/subjects/" + url.PathEscape(subject)
	req := schemaRequest{SchemaType: "JSON", Schema: schema}

	var resp schemaResponse
	err := c.post(ctx, path, req, &resp)
	if err == nil {
		return resp.ID, nil
	}
	var regErr *RegistryError
	if !errors.As(err, &regErr) || !regErr.notRegistered() {
		return 0, fmt.Errorf("look up %s: %w", subject, err)
	}

	if err := c.post(ctx, path+"/versions", req, &resp); err != nil {
		return 0, fmt.Errorf("register %s: %w", subject, err)
	}
	return resp.ID, nil
}

func (c *SchemaRegistryClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", registryContentType)
	req.Header.Set("Accept", registryContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		regErr := &RegistryError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, regErr) != nil || regErr.Message == "" {
			regErr.Message = strings.TrimSpace(string(data))
		}
		return regErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
