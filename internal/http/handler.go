package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nurpe/snowops-agreements/internal/http/middleware"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	agreements *service.AgreementService
	log        zerolog.Logger
}

func NewHandler(agreements *service.AgreementService, log zerolog.Logger) *Handler {
	return &Handler{agreements: agreements, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/agreements", h.listAgreements)
	protected.POST("/agreements", h.submitAgreement)
	protected.GET("/agreements/export", h.exportAgreements)
	protected.GET("/agreements/form-data", h.formData)

	protected.POST("/agreements/preview", h.previewAgreement)
	protected.GET("/agreements/preview", h.currentPreview)
	protected.DELETE("/agreements/preview", h.discardPreview)
	protected.POST("/agreements/preview/confirm", h.confirmPreview)

	protected.GET("/agreements/:id", h.getAgreement)
	protected.PUT("/agreements/:id", h.editAgreement)
	protected.DELETE("/agreements/:id", h.deleteAgreement)
	protected.GET("/agreements/:id/attachment", h.downloadAttachment)
	protected.GET("/agreements/:id/pdf", h.agreementPDF)
	protected.GET("/agreements/:id/access", h.usersWithAccess)
	protected.POST("/agreements/:id/access", h.manageAccess)
	protected.POST("/agreements/:id/test-reminder", h.testReminder)

	protected.GET("/users/available", h.availableUsers)
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) listAgreements(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	input, err := parseListInput(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	result, err := h.agreements.List(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) exportAgreements(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	input, err := parseListInput(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	file, err := h.agreements.Export(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, file.Name, xlsxContentType, file.Content)
}

func (h *Handler) formData(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	data, err := h.agreements.FormData(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) submitAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	form, err := parseAgreementForm(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	upload, closeUpload, err := parseUpload(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer closeUpload()

	saved, err := h.agreements.Submit(c.Request.Context(), principal, form, upload)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) previewAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	form, err := parseAgreementForm(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	upload, closeUpload, err := parseUpload(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer closeUpload()

	preview, err := h.agreements.Preview(c.Request.Context(), principal, form, upload)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) currentPreview(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	preview, err := h.agreements.CurrentDraft(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) discardPreview(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.agreements.DiscardDraft(c.Request.Context(), principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) confirmPreview(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	saved, err := h.agreements.ConfirmDraft(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) getAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	detail, err := h.agreements.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) editAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	form, err := parseAgreementForm(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	upload, closeUpload, err := parseUpload(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer closeUpload()

	saved, err := h.agreements.Edit(c.Request.Context(), principal, c.Param("id"), service.EditInput{
		Form:             form,
		Upload:           upload,
		DeleteAttachment: parseBool(c.PostForm("delete_attachment")),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) deleteAgreement(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.agreements.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) downloadAttachment(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	file, err := h.agreements.Attachment(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer file.Content.Close()

	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(file.Name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", contentDisposition(file.Name))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file.Content); err != nil {
		h.log.Warn().Err(err).Str("agreement", c.Param("id")).Msg("attachment download interrupted")
	}
}

func (h *Handler) agreementPDF(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	file, err := h.agreements.PDF(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, file.Name, "application/pdf", file.Content)
}

func (h *Handler) usersWithAccess(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	users, err := h.agreements.UsersWithAccess(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) manageAccess(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	var change service.AccessChange
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	users, err := h.agreements.ManageAccess(c.Request.Context(), principal, c.Param("id"), change)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) testReminder(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	to, err := h.agreements.TestReminder(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent_to": to})
}

func (h *Handler) availableUsers(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	users, err := h.agreements.AvailableUsers(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validationErr.Fields})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoDraft):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExternalService):
		h.log.Error().Err(err).Str("route", c.FullPath()).Str("agreement", c.Param("id")).Msg("external service failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "external service unavailable"})
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Str("agreement", c.Param("id")).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func sendFile(c *gin.Context, name, contentType string, content []byte) {
	c.Header("Content-Disposition", contentDisposition(name))
	c.Data(http.StatusOK, contentType, content)
}

func contentDisposition(name string) string {
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": name}); value != "" {
		return value
	}
	return "attachment"
}
