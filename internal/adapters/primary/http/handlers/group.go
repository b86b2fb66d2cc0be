package handlers

import (
	"net/http"

	"spec-registry-service/internal/adapters/primary/http/dto"
	"spec-registry-service/internal/adapters/primary/http/middleware"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.groupSvc.List(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListGroupsResponse(groups))
}

func (h *Handler) GetGroup(c *gin.Context) {
	g, err := h.groupSvc.Get(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGroupResponse(g))
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.groupSvc.Create(c.Request.Context(), middleware.TenantID(c), req.Name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToGroupResponse(g))
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupSvc.Update(c.Request.Context(), middleware.TenantID(c), c.Param("id"), body); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.groupSvc.Delete(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
