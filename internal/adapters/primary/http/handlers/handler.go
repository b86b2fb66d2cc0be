package handlers

import (
	"spec-registry-service/internal/adapters/primary/http/middleware"
	"spec-registry-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	specSvc  *services.SpecificationService
	groupSvc *services.GroupService
}

func New(specSvc *services.SpecificationService, groupSvc *services.GroupService) *Handler {
	return &Handler{
		specSvc:  specSvc,
		groupSvc: groupSvc,
	}
}

// RegisterRoutes mounts the tenant-scoped API. Every route requires X-Tenant-ID.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.Use(middleware.Tenant())

	// Specifications
	r.GET("/specifications", h.ListSpecifications)
	r.GET("/specifications/:id", h.GetSpecification)
	r.POST("/specifications", h.CreateSpecification)
	r.PUT("/specifications/:id", h.UpdateSpecification)
	r.DELETE("/specifications/:id", h.DeleteSpecification)
	r.POST("/specifications/:id/duplicate", h.DuplicateSpecification)
	r.GET("/specifications/:id/download", h.DownloadSpecification)
	r.GET("/specifications/:id/preview", h.PreviewSpecification)

	// Specification Groups
	r.GET("/specification_groups", h.ListGroups)
	r.GET("/specification_groups/:id", h.GetGroup)
	r.POST("/specification_groups", h.CreateGroup)
	r.PUT("/specification_groups/:id", h.UpdateGroup)
	r.DELETE("/specification_groups/:id", h.DeleteGroup)
}
