package httphandler

import (
	"net/http"

	"github.com/google/go-github/v82/github"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// Webhook receives GitHub webhook deliveries. Only pull_request events with a
// recognized action trigger a run; everything else is acknowledged with 200
// so GitHub does not mark the hook as failing.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		h.logger.Warn("webhook signature validation failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	eventType := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)

	if eventType != "pull_request" {
		h.logger.Debug("ignoring webhook event", "type", eventType, "delivery_id", deliveryID)
		writeJSON(w, http.StatusOK, WebhookResponse{Triggered: false})
		return
	}

	raw, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("failed to parse webhook payload", "delivery_id", deliveryID, "error", err)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	prEvent, ok := raw.(*github.PullRequestEvent)
	if !ok || prEvent.GetPullRequest() == nil || prEvent.GetRepo() == nil {
		writeError(w, http.StatusBadRequest, "malformed pull_request payload")
		return
	}

	event := model.PullRequestEvent{
		Action:       model.EventAction(prEvent.GetAction()),
		DeliveryID:   deliveryID,
		RepoFullName: prEvent.GetRepo().GetFullName(),
		PRNumber:     prEvent.GetNumber(),
		HeadSHA:      prEvent.GetPullRequest().GetHead().GetSHA(),
		HeadBranch:   prEvent.GetPullRequest().GetHead().GetRef(),
		BaseBranch:   prEvent.GetPullRequest().GetBase().GetRef(),
	}

	run, err := h.gateSvc.HandleEvent(r.Context(), event)
	if err != nil {
		h.logger.Error("failed to handle pull request event",
			"repo", event.RepoFullName,
			"pr", event.PRNumber,
			"delivery_id", deliveryID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if run == nil {
		writeJSON(w, http.StatusOK, WebhookResponse{Triggered: false})
		return
	}

	writeJSON(w, http.StatusAccepted, WebhookResponse{Triggered: true, RunID: run.ID})
}
