package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bjaergning/rapport/internal/api/models"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/bjaergning/rapport/internal/engine"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type AdminHandler struct {
	*Handler
}

func NewAdmin(h *Handler) *AdminHandler {
	return &AdminHandler{Handler: h}
}

// AdminPanel shows the accounts, data counts and background jobs.
func (h *AdminHandler) AdminPanel(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		users     []database.User
		stats     *database.Stats
		sizeBytes int64
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		users, err = h.engine.Users(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = h.engine.Stats(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		if sizeBytes, err = h.engine.Attachments().Size(); err != nil {
			log.Warn("Failed to measure attachment directory", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		h.internalError(c, err)
		return
	}

	documents := h.engine.GetDocumentCache()
	h.render(c, http.StatusOK, "admin.html", gin.H{
		"Title": "Administration",
		"Users": models.ToUserItems(users),
		"Stats": models.ToStatsItem(stats, sizeBytes),
		"Jobs":  h.engine.GetScheduler().GetJobs(),
		"Cache": models.ToCacheItem(documents.GetType(), documents.GetStats()),
	})
}

// AdminAction handles the account forms of the admin panel.
func (h *AdminHandler) AdminAction(c *gin.Context) {
	ctx := c.Request.Context()

	switch {
	case c.PostForm("add_user") != "":
		username := strings.TrimSpace(c.PostForm("new_username"))
		if _, err := h.engine.CreateUser(ctx, username, c.PostForm("new_password"), false); err != nil {
			h.flash(c, accountErrorMessage(err))
		} else {
			h.flash(c, "Brugeren "+username+" er oprettet.")
		}

	case c.PostForm("delete_user") != "":
		id, err := parseUintParam(c.PostForm("delete_user"))
		if err != nil {
			h.flash(c, accountErrorMessage(database.ErrNotFound))
			break
		}
		if err := h.engine.DeleteUser(ctx, id); err != nil {
			h.flash(c, accountErrorMessage(err))
		} else {
			h.flash(c, "Brugeren er slettet.")
		}

	case c.PostForm("reset_password") != "":
		id, err := parseUintParam(c.PostForm("reset_password"))
		if err != nil {
			h.flash(c, accountErrorMessage(database.ErrNotFound))
			break
		}
		if err := h.engine.ResetPassword(ctx, id, c.PostForm("reset_new_password")); err != nil {
			h.flash(c, accountErrorMessage(err))
		} else {
			h.flash(c, "Adgangskoden er nulstillet.")
		}

	case c.PostForm("run_job") != "":
		if err := h.engine.GetScheduler().RunJobNow(c.PostForm("run_job")); err != nil {
			log.Error("Failed to trigger job", "error", err)
			h.flash(c, "Jobbet kunne ikke startes.")
		} else {
			h.flash(c, "Jobbet er startet.")
		}

	default:
		log.Warn("Unknown admin action")
	}

	c.Redirect(http.StatusFound, "/admin")
}

func accountErrorMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrUsernameTaken):
		return "Brugernavnet findes allerede."
	case errors.Is(err, database.ErrAdminProtected):
		return "Administratorer kan ikke slettes."
	case errors.Is(err, database.ErrInvalidInput), errors.Is(err, engine.ErrValidation):
		return "Brugernavn og adgangskode skal udfyldes."
	case errors.Is(err, database.ErrNotFound):
		return "Brugeren findes ikke."
	default:
		return msgInternalError
	}
}
