package crud

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler exposes a Service as a resource-oriented endpoint group.
type Handler[E any, R any, S Searcher, I any, U any] struct {
	svc *Service[E, R, S, I, U]
}

func NewHandler[E any, R any, S Searcher, I any, U any](svc *Service[E, R, S, I, U]) *Handler[E, R, S, I, U] {
	return &Handler[E, R, S, I, U]{svc: svc}
}

// SetupRoutes registers list/get/insert/update/delete under path.
func (h *Handler[E, R, S, I, U]) SetupRoutes(r gin.IRouter, path string) {
	r.GET(path, h.List)
	r.GET(path+"/:id", h.Get)
	r.POST(path, h.Insert)
	r.PUT(path+"/:id", h.Update)
	r.DELETE(path+"/:id", h.Delete)
}

func (h *Handler[E, R, S, I, U]) List(c *gin.Context) {
	var search S
	if err := c.ShouldBindQuery(&search); err != nil {
		c.JSON(http.StatusBadRequest, BindingError("Invalid search parameters", err))
		return
	}
	h.ListWith(c, search)
}

// ListWith runs a list for an already bound search object.
func (h *Handler[E, R, S, I, U]) ListWith(c *gin.Context, search S) {
	result, err := h.svc.List(c.Request.Context(), search)
	if err != nil {
		RespondError(c, h.svc.Name(), err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler[E, R, S, I, U]) Get(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.svc.Name(), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler[E, R, S, I, U]) Insert(c *gin.Context) {
	var req I
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BindingError(fmt.Sprintf("Invalid %s data", h.svc.Name()), err))
		return
	}
	resp, err := h.svc.Insert(c.Request.Context(), req)
	if err != nil {
		RespondError(c, h.svc.Name(), err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler[E, R, S, I, U]) Update(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	var req U
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BindingError(fmt.Sprintf("Invalid %s data", h.svc.Name()), err))
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		RespondError(c, h.svc.Name(), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler[E, R, S, I, U]) Delete(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.svc.Name(), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s deleted successfully", h.svc.Name()),
	})
}

// ParseID reads a numeric path parameter, answering 400 itself when it is malformed.
func ParseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid %s", param),
		})
		return 0, false
	}
	return uint(id), true
}

// RespondError writes the HTTP form of the error taxonomy.
func RespondError(c *gin.Context, resource string, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("%s not found", resource),
		})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": verr.Message,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   fmt.Sprintf("Failed to process %s request", resource),
			"details": err.Error(),
		})
	}
}

// BindingError turns request binding failures into per-field messages.
func BindingError(message string, err error) gin.H {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return gin.H{"error": message, "details": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return gin.H{"error": message, "fields": fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "base64":
		return "must be base64 encoded"
	default:
		return "failed on " + fe.Tag()
	}
}
