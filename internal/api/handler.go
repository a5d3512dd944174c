package api

import (
	"net/http"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status" description:"Service status"`
	Version string `json:"version" description:"API version"`
}

// StatsResponse summarises knowledge base contents.
type StatsResponse struct {
	TotalChunks int            `json:"total_chunks" description:"Chunks across all partitions"`
	Partitions  map[string]int `json:"partitions" description:"Chunk count per domain partition"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error" description:"Error message"`
	Code  int    `json:"code" description:"HTTP status code"`
}

// Handler serves the ops endpoints.
type Handler struct {
	index   vectorstore.Index
	version string
}

// NewHandler builds the handler over the live index.
func NewHandler(index vectorstore.Index, version string) *Handler {
	return &Handler{index: index, version: version}
}

func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteAsJson(HealthResponse{Status: "ok", Version: h.version})
}

func (h *Handler) Stats(req *restful.Request, resp *restful.Response) {
	stats, err := h.index.Stats(req.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect index stats")
		_ = resp.WriteHeaderAndJson(http.StatusInternalServerError,
			ErrorResponse{Error: "failed to collect stats", Code: http.StatusInternalServerError},
			restful.MIME_JSON)
		return
	}

	partitions := make(map[string]int, len(stats.Partitions))
	for domain, count := range stats.Partitions {
		partitions[domain.String()] = count
	}
	_ = resp.WriteAsJson(StatsResponse{TotalChunks: stats.TotalChunks, Partitions: partitions})
}
