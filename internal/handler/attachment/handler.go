package attachment

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smilecare/clinic-api/internal/handler"
	"github.com/smilecare/clinic-api/internal/service/attachment"
	"github.com/smilecare/clinic-api/pkg/filestore"
)

type Handler struct {
	service *attachment.Service
}

func NewHandler(service *attachment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	attachments := r.Group("/patients/:id/attachments")
	{
		attachments.POST("", h.Upload)
		attachments.GET("", h.List)
		attachments.GET("/:attachmentId", h.Download)
		attachments.DELETE("/:attachmentId", h.Delete)
	}
}

func (h *Handler) Upload(c *gin.Context) {
	actor, ok := handler.MustActor(c)
	if !ok {
		return
	}

	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("image file is required"))
		return
	}
	if file.Size > filestore.MaxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, handler.NewErrorResponse("image exceeds 5 MiB"))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to open uploaded file"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, filestore.MaxImageSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to read uploaded file"))
		return
	}

	att, err := h.service.Upload(c.Request.Context(), actor, patientID,
		c.PostForm("description"), data, file.Filename)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(att))
}

func (h *Handler) List(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	attachments, err := h.service.List(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(attachments))
}

func (h *Handler) Download(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid attachment ID"))
		return
	}

	att, data, err := h.service.Open(c.Request.Context(), attachmentID, patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+att.ImageURL+`"`)
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := handler.MustActor(c)
	if !ok {
		return
	}

	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid attachment ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, attachmentID, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
