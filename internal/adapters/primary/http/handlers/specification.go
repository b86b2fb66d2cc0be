package handlers

import (
	"net/http"

	"spec-registry-service/internal/adapters/primary/http/dto"
	"spec-registry-service/internal/adapters/primary/http/middleware"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListSpecifications(c *gin.Context) {
	filter := services.SpecificationFilter{
		GroupID: c.Query("group_id"),
		Status:  domain.Status(c.Query("status")),
	}

	specs, err := h.specSvc.List(c.Request.Context(), middleware.TenantID(c), filter)
	if err != nil {
		log.WithError(err).Error("list specifications failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListSpecificationsResponse(specs))
}

func (h *Handler) GetSpecification(c *gin.Context) {
	spec, err := h.specSvc.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSpecificationResponse(spec))
}

func (h *Handler) CreateSpecification(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := h.specSvc.Create(c.Request.Context(), middleware.TenantID(c), middleware.User(c), body)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"tenant_id":        spec.TenantID,
		"specification_id": spec.SpecificationID,
	}).Info("specification created")
	c.JSON(http.StatusCreated, dto.ToSpecificationResponse(spec))
}

func (h *Handler) UpdateSpecification(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.specSvc.Update(c.Request.Context(), middleware.TenantID(c), c.Param("id"), body); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteSpecification(c *gin.Context) {
	if err := h.specSvc.Delete(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DuplicateSpecification(c *gin.Context) {
	spec, err := h.specSvc.Duplicate(c.Request.Context(), middleware.TenantID(c), c.Param("id"), middleware.User(c))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSpecificationResponse(spec))
}

// DownloadSpecification answers 202 until the first render has completed.
func (h *Handler) DownloadSpecification(c *gin.Context) {
	url, pending, err := h.specSvc.ArtifactURL(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if pending {
		c.JSON(http.StatusAccepted, dto.DownloadResponse{Status: "rendering"})
		return
	}

	c.JSON(http.StatusOK, dto.DownloadResponse{URL: url, Status: "ready"})
}

// PreviewSpecification is DownloadSpecification with a URL the browser
// displays inline.
func (h *Handler) PreviewSpecification(c *gin.Context) {
	url, pending, err := h.specSvc.PreviewURL(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if pending {
		c.JSON(http.StatusAccepted, dto.DownloadResponse{Status: "rendering"})
		return
	}

	c.JSON(http.StatusOK, dto.DownloadResponse{URL: url, Status: "ready"})
}
