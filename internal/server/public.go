package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"event-registration/internal/models"
	"event-registration/internal/registration"
)

func (h *handlers) render(c *gin.Context, code int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	c.HTML(code, name, data)
}

func (h *handlers) home(c *gin.Context) {
	h.render(c, http.StatusOK, "home.html", "Event Registration", nil)
}

func (h *handlers) registerForm(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, formValues{Competition: string(models.Competitions[0])}, nil)
}

func (h *handlers) renderRegister(c *gin.Context, code int, form formValues, f *flash) {
	h.render(c, code, "register.html", "Event Registration Portal", gin.H{
		"Form":         form,
		"Competitions": models.Competitions,
		"Flash":        f,
	})
}

// readSubmission pulls the registration form out of a multipart or
// urlencoded body. The returned func closes the uploaded file and removes
// the multipart temp files, since the session middleware may have swapped
// the request net/http cleans up after.
func (h *handlers) readSubmission(c *gin.Context) (registration.Submission, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxAudioBytes+1<<20)

	_, err := c.MultipartForm()
	release := func() {
		if form := c.Request.MultipartForm; form != nil {
			_ = form.RemoveAll()
		}
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return registration.Submission{}, release, &registration.ValidationError{Field: models.ColAudioFile, Message: "Audio file is too large"}
		}
		return registration.Submission{}, release, &registration.ValidationError{Field: models.ColAudioFile, Message: "Upload could not be read"}
	}

	sub := registration.Submission{
		Name:        c.PostForm("name"),
		College:     c.PostForm("college"),
		RegNo:       c.PostForm("reg_no"),
		Event:       c.PostForm("event"),
		Competition: c.PostForm("competition"),
	}
	form := c.Request.MultipartForm
	if form == nil || len(form.File["audio"]) == 0 {
		return sub, release, nil
	}
	f, err := form.File["audio"][0].Open()
	if err != nil {
		return sub, release, &registration.ValidationError{Field: models.ColAudioFile, Message: "Upload could not be read"}
	}
	sub.Audio = f
	return sub, func() {
		f.Close()
		release()
	}, nil
}

func (h *handlers) submit(c *gin.Context) (registration.Submission, *registration.Outcome, error) {
	sub, done, err := h.readSubmission(c)
	defer done()
	if err != nil {
		return sub, nil, err
	}
	out, err := h.regs.Submit(c.Request.Context(), sub)
	return sub, out, err
}

func (h *handlers) register(c *gin.Context) {
	sub, out, err := h.submit(c)
	form := formValues{
		Name:        sub.Name,
		College:     sub.College,
		RegNo:       sub.RegNo,
		Event:       sub.Event,
		Competition: sub.Competition,
	}

	var verr *registration.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderRegister(c, http.StatusBadRequest, form, &flash{Kind: "warning", Text: "⚠ " + verr.Message})
	case errors.Is(err, registration.ErrDuplicateRegistration):
		h.renderRegister(c, http.StatusConflict, form, &flash{Kind: "warning", Text: "⚠ This registration number has already been submitted"})
	case err != nil:
		_ = c.Error(err)
		h.renderRegister(c, http.StatusInternalServerError, form, &flash{Kind: "error", Text: "Could not save your registration. Please try again."})
	default:
		h.renderRegister(c, http.StatusOK, formValues{Competition: form.Competition}, &flash{
			Kind: "success",
			Text: fmt.Sprintf("✅ Submitted Successfully — %s", out.Status),
		})
	}
}

func (h *handlers) status(c *gin.Context) {
	regNo := strings.TrimSpace(c.Query("reg_no"))
	data := gin.H{"RegNo": regNo}
	if regNo == "" {
		h.render(c, http.StatusOK, "status.html", "Check Registration Status", data)
		return
	}

	st, found, err := h.reviews.Status(c.Request.Context(), regNo)
	code := http.StatusOK
	switch {
	case err != nil:
		_ = c.Error(err)
		code = http.StatusInternalServerError
		data["Flash"] = &flash{Kind: "error", Text: "Status is unavailable right now."}
	case !found:
		code = http.StatusNotFound
		data["Flash"] = &flash{Kind: "warning", Text: "No registration found"}
	default:
		data["Flash"] = statusFlash(st)
	}
	h.render(c, code, "status.html", "Check Registration Status", data)
}

func statusFlash(st models.Status) *flash {
	switch st {
	case models.StatusApproved:
		return &flash{Kind: "success", Text: "✅ " + st.Label()}
	case models.StatusNeedsReview:
		return &flash{Kind: "warning", Text: "⚠ " + st.Label()}
	case models.StatusRejected:
		return &flash{Kind: "error", Text: "❌ " + st.Label()}
	default:
		return &flash{Kind: "info", Text: st.Label()}
	}
}
