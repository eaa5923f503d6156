package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bjaergning/rapport/internal/api/auth"
	"github.com/bjaergning/rapport/internal/api/models"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/bjaergning/rapport/internal/engine"
	"github.com/bjaergning/rapport/internal/notify/email"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidLogin  = "Forkert brugernavn eller adgangskode."
	msgMissingFields = "Sted og opgave skal udfyldes."
	msgInternalError = "Der opstod en fejl. Prøv igen."
	msgNotFound      = "Rapporten findes ikke."
	msgBadUpload     = "Rapporten kunne ikke modtages. Er fotoene for store?"
)

type Handler struct {
	engine *engine.Engine
	gate   *auth.Gate
}

func New(eng *engine.Engine, gate *auth.Gate) *Handler {
	return &Handler{
		engine: eng,
		gate:   gate,
	}
}

// render adds the session user and pending flashes to the page data.
func (h *Handler) render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = auth.CurrentUser(c)

	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		data["Flashes"] = flashes
		if err := session.Save(); err != nil {
			log.Error("Failed to save session", "error", err)
		}
	}

	c.HTML(code, name, data)
}

func (h *Handler) flash(c *gin.Context, msg string) {
	session := sessions.Default(c)
	session.AddFlash(msg)
	if err := session.Save(); err != nil {
		log.Error("Failed to save flash message", "error", err)
	}
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "fejl.html", gin.H{"Title": "Ikke fundet", "Message": msgNotFound})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	h.render(c, http.StatusInternalServerError, "fejl.html", gin.H{"Title": "Fejl", "Message": msgInternalError})
}

func parseUintParam(param string) (uint, error) {
	var id uint64
	var err error
	if id, err = strconv.ParseUint(param, 10, 0); err != nil {
		return 0, err
	}
	return uint(id), nil
}

// LoginForm shows the login page, or sends logged in users home.
func (h *Handler) LoginForm(c *gin.Context) {
	if h.gate.LoggedIn(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log ind"})
}

// Login checks the submitted credentials and starts a session.
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.gate.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.render(c, http.StatusOK, "login.html", gin.H{
				"Title":    "Log ind",
				"Error":    msgInvalidLogin,
				"Username": username,
			})
			return
		}
		h.internalError(c, err)
		return
	}

	if err := h.gate.Login(c, user); err != nil {
		h.internalError(c, err)
		return
	}
	log.Info("User logged in", "username", user.Username, "admin", user.IsAdmin)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.gate.Logout(c); err != nil {
		if err := c.AbortWithError(http.StatusInternalServerError, err); err != nil {
			log.Error("Failed to abort with error", "error", err)
		}
		return
	}
	c.Redirect(http.StatusFound, auth.LoginPath)
}

// Index shows the report form.
func (h *Handler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, "index.html", gin.H{"Title": "Ny rapport"})
}

// SubmitReport stores a submitted report and its entries.
func (h *Handler) SubmitReport(c *gin.Context) {
	form, err := readSubmission(c)
	if err != nil {
		log.Warn("Failed to read report submission", "error", err)
		h.render(c, http.StatusBadRequest, "index.html", gin.H{
			"Title": "Ny rapport",
			"Error": msgBadUpload,
		})
		return
	}

	submissions, err := engine.ZipEntries(form.times, form.descs, form.images)
	if err == nil {
		_, err = h.engine.SubmitReport(c.Request.Context(), form.location, form.subject, submissions)
	}
	if err != nil {
		if errors.Is(err, engine.ErrValidation) {
			log.Warn("Rejected report submission", "error", err)
			h.render(c, http.StatusBadRequest, "index.html", gin.H{
				"Title":    "Ny rapport",
				"Error":    msgMissingFields,
				"Location": form.location,
				"Subject":  form.subject,
			})
			return
		}
		h.internalError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/tak")
}

// Thanks confirms a stored report.
func (h *Handler) Thanks(c *gin.Context) {
	h.render(c, http.StatusOK, "tak.html", gin.H{"Title": "Tak"})
}

// Reports lists all reports, most recent first.
func (h *Handler) Reports(c *gin.Context) {
	reports, err := h.engine.Reports(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	h.render(c, http.StatusOK, "rapporter.html", gin.H{
		"Title":   "Rapporter",
		"Reports": models.ToReportItems(reports),
	})
}

// Report shows a single report with its entries.
func (h *Handler) Report(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}

	detail, err := h.engine.Report(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.internalError(c, err)
		return
	}

	h.render(c, http.StatusOK, "rapport.html", gin.H{
		"Title":        fmt.Sprintf("Rapport %d", id),
		"Report":       models.ToReportView(*detail.Report, detail.Entries),
		"EmailEnabled": h.engine.EmailEnabled(),
	})
}

// EmailReport sends the report PDF to the submitted address.
func (h *Handler) EmailReport(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	recipient := c.PostForm("email")

	sent, err := h.engine.EmailReport(c.Request.Context(), id, recipient)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.internalError(c, err)
		return
	}

	if sent {
		h.flash(c, fmt.Sprintf("Rapporten er sendt til %s.", recipient))
	} else {
		h.flash(c, "Rapporten kunne ikke sendes.")
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/rapport/%d", id))
}

// DownloadPDF returns the report as a PDF attachment.
func (h *Handler) DownloadPDF(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}

	pdf, err := h.engine.ReportPDF(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.internalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, email.AttachmentName))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// DeleteEntry removes an entry and returns to the report.
func (h *Handler) DeleteEntry(c *gin.Context) {
	reportID, err := parseUintParam(c.Param("id"))
	if err != nil {
		h.notFound(c)
		return
	}
	entryID, err := parseUintParam(c.Param("entryId"))
	if err != nil {
		h.notFound(c)
		return
	}

	if err := h.engine.DeleteEntry(c.Request.Context(), reportID, entryID); err != nil {
		h.internalError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/rapport/%d", reportID))
}
