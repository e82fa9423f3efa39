package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry keeps one subject and answers lookups with the Confluent error codes.
type fakeRegistry struct {
	t           *testing.T
	mu          sync.Mutex
	subject     string
	missingCode int
	registered  string
	lookups     int
	registers   int
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	assert.Equal(f.t, registryContentType, r.Header.Get("Content-Type"))
	var body schemaRequest
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	assert.Equal(f.t, "JSON", body.SchemaType)

	switch r.URL.Path {
	case "/subjects/" + f.subject:
		f.lookups++
		if f.registered != body.Schema {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":` + strconv.Itoa(f.missingCode) + `,"message":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"subject":"` + f.subject + `","id":11,"version":1}`))
	case "/subjects/" + f.subject + "/versions":
		f.registers++
		f.registered = body.Schema
		_, _ = w.Write([]byte(`{"id":11}`))
	default:
		http.NotFound(w, r)
	}
}

func TestSchemaRegistryRegistersUnknownSchema(t *testing.T) {
	for _, code := range []int{codeSubjectNotFound, codeSchemaNotFound} {
		fake := &fakeRegistry{t: t, subject: "sabzgam.walks-value", missingCode: code}
		srv := httptest.NewServer(fake)

		client := NewSchemaRegistryClient(srv.URL + "/")
		id, err := client.EnsureSchema(context.Background(), "sabzgam.walks-value", walkCompletedSchema)
		require.NoError(t, err)
		require.Equal(t, 11, id)

		id, err = client.EnsureSchema(context.Background(), "sabzgam.walks-value", walkCompletedSchema)
		require.NoError(t, err)
		require.Equal(t, 11, id)

		fake.mu.Lock()
		require.JSONEq(t, walkCompletedSchema, fake.registered)
		require.Equal(t, 2, fake.lookups)
		require.Equal(t, 1, fake.registers, "a known schema is not registered again")
		fake.mu.Unlock()
		srv.Close()
	}
}

func TestSchemaRegistryPropagatesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "sabzgam.wallet-value", walletCreditedSchema)
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	require.Equal(t, http.StatusServiceUnavailable, regErr.Status)
	require.Equal(t, "unavailable", regErr.Message)
	require.ErrorContains(t, err, "look up sabzgam.wallet-value")
}

func TestSchemaRegistryDecodesIncompatibleSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/subjects/sabzgam.wallet-value" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":40403,"message":"Schema not found"}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_code":409,"message":"Schema being registered is incompatible"}`))
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "sabzgam.wallet-value", walletCreditedSchema)
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	require.Equal(t, 409, regErr.Code)
	require.ErrorContains(t, err, "register sabzgam.wallet-value")
}
