package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/numtema/funnelforge/internal/models"
)

// LeadNotifier pushes a WhatsApp message to the funnel owner whenever a
// lead completes the capture step. Notification failures are logged, never
// surfaced to the visitor.
type LeadNotifier struct {
	service Service
}

// NewLeadNotifier creates a notifier on top of a messaging service.
func NewLeadNotifier(service Service) *LeadNotifier {
	return &LeadNotifier{service: service}
}

// NotifyLead sends the lead summary to the number configured on the funnel.
// It is a no-op when WhatsApp notifications are disabled or unconfigured.
func (n *LeadNotifier) NotifyLead(ctx context.Context, funnel models.Funnel, lead models.Lead) error {
	wa := funnel.Settings.WhatsApp
	if !wa.Enabled || wa.Number == "" {
		slog.Debug("LeadNotifier.NotifyLead skipped, WhatsApp notifications disabled", "funnelID", funnel.ID)
		return nil
	}

	body := formatLeadMessage(funnel, lead)
	if err := n.service.SendMessage(ctx, wa.Number, body); err != nil {
		slog.Error("LeadNotifier.NotifyLead failed to send", "error", err, "funnelID", funnel.ID, "leadID", lead.ID)
		return fmt.Errorf("failed to notify lead capture: %w", err)
	}
	slog.Info("LeadNotifier.NotifyLead sent", "funnelID", funnel.ID, "leadID", lead.ID)
	return nil
}

// formatLeadMessage renders the owner-facing lead summary.
func formatLeadMessage(funnel models.Funnel, lead models.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nouveau lead sur « %s »\n", funnel.Name)
	if lead.Name != "" {
		fmt.Fprintf(&b, "Nom : %s\n", lead.Name)
	}
	if lead.Email != "" {
		fmt.Fprintf(&b, "Email : %s\n", lead.Email)
	}
	if lead.Phone != "" {
		fmt.Fprintf(&b, "Téléphone : %s\n", lead.Phone)
	}
	if funnel.Settings.Scoring.Enabled {
		fmt.Fprintf(&b, "Score : %d", lead.Score)
		if lead.Segment != "" {
			fmt.Fprintf(&b, " (%s)", lead.Segment)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
