package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"event-registration/internal/registration"
	"event-registration/internal/server/response"
)

func (h *handlers) apiRegister(c *gin.Context) {
	_, out, err := h.submit(c)

	var verr *registration.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationError(c, map[string]string{verr.Field: verr.Message})
	case errors.Is(err, registration.ErrDuplicateRegistration):
		response.Error(c, http.StatusConflict, err.Error())
	case err != nil:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "could not save registration")
	default:
		response.Success(c, http.StatusCreated, gin.H{
			"reg_no": out.Participant.RegNo,
			"status": out.Status,
		})
	}
}

func (h *handlers) apiStatus(c *gin.Context) {
	regNo := c.Param("reg_no")
	st, found, err := h.reviews.Status(c.Request.Context(), regNo)
	switch {
	case err != nil:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "status unavailable")
	case !found:
		response.Error(c, http.StatusNotFound, "registration not found")
	default:
		response.Success(c, http.StatusOK, gin.H{
			"reg_no": regNo,
			"status": st,
			"label":  st.Label(),
		})
	}
}
