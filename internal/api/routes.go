package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

// RegisterRoutes mounts the ops endpoints on the container.
func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.GET("/stats").
			To(handler.Stats).
			Doc("Knowledge base statistics").
			Metadata(restfulspec.KeyOpenAPITags, []string{"stats"}).
			Writes(StatsResponse{}).
			Returns(200, "OK", StatsResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	container.Add(ws)
}
