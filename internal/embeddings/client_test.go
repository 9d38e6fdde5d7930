package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

type openAIEmbeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, Model: "test-model"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, srv
}

func TestEmbedDocumentsPostsOpenAICompatibleBody(t *testing.T) {
	var gotPath string
	var gotReq openAIEmbeddingsRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		var resp openAIEmbeddingsResponse
		for i := range gotReq.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{0.1, 0.2, 0.3}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	})

	vectors, err := c.EmbedDocuments(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if gotPath != "/embeddings" {
		t.Fatalf("expected POST to /embeddings, got %q", gotPath)
	}
	if gotReq.Model != "test-model" {
		t.Fatalf("unexpected model in request: %q", gotReq.Model)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
}

func TestEmbedQueryReturnsSingleVector(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var resp openAIEmbeddingsResponse
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{1, 2, 3}})
		json.NewEncoder(w).Encode(resp)
	})

	vec, err := c.EmbedQuery(context.Background(), "a query")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
}

func TestEmbedDocumentsRejectsEmptyInput(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://unused", Model: "m"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.EmbedDocuments(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestEmbedDocumentsSurfacesEndpointError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down for maintenance"))
	})

	if _, err := c.EmbedDocuments(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error from a 503 response")
	}
}

func TestEmbedDocumentsRejectsMismatchedVectorCount(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var resp openAIEmbeddingsResponse
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{Embedding: []float32{1}})
		json.NewEncoder(w).Encode(resp)
	})

	if _, err := c.EmbedDocuments(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when response vector count does not match request")
	}
}

func TestEmbedQueryRejectsEmptyInput(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://unused", Model: "m"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.EmbedQuery(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(Config{}, nil); err == nil {
		t.Fatal("expected error for empty config")
	}
}
