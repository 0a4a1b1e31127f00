package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"log/slog"

	"github.com/jivahealth/registration-relay/internal/form"
	"github.com/jivahealth/registration-relay/internal/mail"
)

// absoluteURLPattern is the only validation applied to client-supplied
// redirect targets. Scheme-only checking is a known open-redirect surface
// carried over from the original route; a host allow-list would change
// behavior and belongs to a migration.
var absoluteURLPattern = regexp.MustCompile(`(?i)^https?://`)

type registrationHandler struct {
	sender          mail.Sender
	mailCfg         mail.Config
	limits          form.Limits
	dispatchTimeout time.Duration
	logger          *slog.Logger
}

func newRegistrationHandler(cfg Config) *registrationHandler {
	return &registrationHandler{
		sender:          cfg.Sender,
		mailCfg:         cfg.Mail,
		limits:          cfg.Limits,
		dispatchTimeout: pickDuration(cfg.DispatchTimeout, defaultDispatchTimeout),
		logger:          cfg.Logger,
	}
}

// handleSubmission runs the pipeline: decode, canonicalize, collect,
// compose, dispatch, route. Underlying decode and dispatch faults are
// logged with the submission id and reported to the caller only as a
// generic message.
func (handler *registrationHandler) handleSubmission(contextGin *gin.Context) {
	submissionID := uuid.New().String()
	logger := handler.logger.With("submission_id", submissionID)

	data, decodeErr := form.Decode(contextGin.Request, handler.limits)
	if decodeErr != nil {
		logger.Error("form decode failed", "error", decodeErr)
		contextGin.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to process submission"})
		return
	}
	defer func() {
		if cleanupErr := data.Cleanup(); cleanupErr != nil {
			logger.Warn("temp file cleanup failed", "error", cleanupErr)
		}
	}()

	lines := form.CanonicalLines(data)
	attachments := mail.CollectAttachments(data)
	message := mail.Compose(handler.mailCfg, data.Field("business_name"), lines, attachments)

	dispatchCtx, cancel := context.WithTimeout(contextGin.Request.Context(), handler.dispatchTimeout)
	defer cancel()
	if dispatchErr := handler.sender.Send(dispatchCtx, message); dispatchErr != nil {
		logger.Error("notification dispatch failed", "error", dispatchErr)
		contextGin.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to process submission"})
		return
	}
	logger.Info("registration dispatched", "fields", len(lines), "attachments", len(attachments))

	handler.routeResponse(contextGin, data)
}

// routeResponse picks the terminal response after a successful dispatch:
// form-field redirect, query redirect, HTML fallback to "/", JSON ack.
func (handler *registrationHandler) routeResponse(contextGin *gin.Context, data *form.Data) {
	target := strings.TrimSpace(data.Field(form.RedirectField))
	if target == "" {
		target = strings.TrimSpace(contextGin.Query(form.RedirectField))
	}
	if target != "" && absoluteURLPattern.MatchString(target) {
		contextGin.Redirect(http.StatusSeeOther, target)
		return
	}
	if strings.Contains(contextGin.GetHeader("Accept"), "text/html") {
		contextGin.Redirect(http.StatusSeeOther, "/")
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"ok": true})
}
