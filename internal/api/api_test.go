package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	restful "github.com/emicklei/go-restful/v3"

	"github.com/povarna/corporate-assistant/internal/models"
	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	idx := vectorstore.NewMemoryIndex()
	err := idx.Upsert(context.Background(),
		[]models.DocumentChunk{
			{ID: "fin-1", Domain: models.DomainFinance, Text: "budget"},
			{ID: "leg-1", Domain: models.DomainLegal, Text: "nda"},
		},
		[][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatal(err)
	}

	container := restful.NewContainer()
	RegisterRoutes(container, NewHandler(idx, "test"))

	srv := httptest.NewServer(container)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 2 {
		t.Errorf("expected 2 chunks, got %d", stats.TotalChunks)
	}
	if stats.Partitions["finance"] != 1 {
		t.Errorf("expected 1 finance chunk, got %d", stats.Partitions["finance"])
	}
}
