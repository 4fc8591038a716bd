package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"

	"event-registration/internal/auth"
	"event-registration/internal/registration"
	"event-registration/internal/review"
)

func filterFrom(event, competition string) review.Filter {
	f := review.Filter{Event: event, Competition: competition}
	if f.Event == "All" {
		f.Event = ""
	}
	if f.Competition == "All" {
		f.Competition = ""
	}
	return f
}

func (h *handlers) renderLogin(c *gin.Context, code int, f *flash) {
	h.render(c, code, "login.html", "Admin Dashboard", gin.H{"Flash": f})
}

func (h *handlers) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := h.reviews.Dashboard(ctx, filterFrom(c.Query("event"), c.Query("competition")))
	switch {
	case errors.Is(err, review.ErrUnauthorized):
		h.renderLogin(c, http.StatusOK, nil)
		return
	case err != nil:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "dashboard unavailable")
		return
	}
	h.render(c, http.StatusOK, "dashboard.html", "Admin Dashboard", gin.H{
		"Dashboard": d,
		"Username":  auth.FromContext(ctx).Username,
	})
}

func (h *handlers) login(c *gin.Context) {
	username := c.PostForm("username")
	token, err := h.auth.Login(username, c.PostForm("password"))
	if err != nil {
		h.logger.Warn("operator login failed", "username", username, "request_id", c.GetString("request_id"))
		h.renderLogin(c, http.StatusUnauthorized, &flash{Kind: "error", Text: "Invalid credentials"})
		return
	}
	setSessionCookie(c, token, h.auth.TTL(), h.opts.SecureCookies)
	h.logger.Info("operator login", "username", username)
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *handlers) logout(c *gin.Context) {
	clearSessionCookie(c, h.opts.SecureCookies)
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (h *handlers) approve(c *gin.Context) {
	h.transition(c, h.reviews.Approve)
}

func (h *handlers) reject(c *gin.Context) {
	h.transition(c, h.reviews.Reject)
}

func (h *handlers) transition(c *gin.Context, apply func(context.Context, string) error) {
	regNo := c.PostForm("reg_no")
	if regNo == "" {
		c.String(http.StatusBadRequest, "reg_no required")
		return
	}
	err := apply(c.Request.Context(), regNo)
	switch {
	case errors.Is(err, review.ErrUnauthorized):
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	case errors.Is(err, review.ErrNotFound):
		c.String(http.StatusNotFound, "registration not found")
		return
	case err != nil:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "could not update status")
		return
	}

	back := "/admin"
	q := url.Values{}
	if v := c.PostForm("event"); v != "" {
		q.Set("event", v)
	}
	if v := c.PostForm("competition"); v != "" {
		q.Set("competition", v)
	}
	if len(q) > 0 {
		back += "?" + q.Encode()
	}
	c.Redirect(http.StatusSeeOther, back)
}

func (h *handlers) audio(c *gin.Context) {
	if !auth.Authenticated(c.Request.Context()) {
		c.String(http.StatusUnauthorized, "login required")
		return
	}
	regNo := c.Query("reg_no")
	if regNo == "" {
		c.String(http.StatusBadRequest, "reg_no required")
		return
	}
	path := registration.AudioPath(h.opts.AudioDir, regNo)
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, "audio not found")
		return
	}
	c.Header("Content-Type", "audio/wav")
	c.File(path)
}

func (h *handlers) export(c *gin.Context) {
	var buf bytes.Buffer
	err := h.reviews.Export(c.Request.Context(), &buf)
	switch {
	case errors.Is(err, review.ErrUnauthorized):
		c.String(http.StatusUnauthorized, "login required")
		return
	case err != nil:
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "export failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="registrations.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
