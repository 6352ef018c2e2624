package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/config"
	"github.com/cryptoboards/cryptoboards/internal/metrics"
	"github.com/cryptoboards/cryptoboards/internal/notifier"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio client we use.
// This allows for easy mocking in tests.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

var _ notifier.Notifier = (*Notifier)(nil)

// Notifier sends game outcome notifications over SMS via Twilio.
type Notifier struct {
	api     messageCreator
	from    string
	metrics metrics.Metrics
}

// NewNotifier creates a new SMS Notifier.
func NewNotifier(cfg config.TwilioConfig, metrics metrics.Metrics) *Notifier {
	var api messageCreator
	if cfg.AccountSID != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		api = client.Api
	}
	return &Notifier{
		api:     api,
		from:    cfg.FromNumber,
		metrics: metrics,
	}
}

// NewNotifierWithAPI creates a Notifier with a specific Twilio API instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api messageCreator, from string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:     api,
		from:    from,
		metrics: metrics,
	}
}

// SendGameOutcome texts a player the result of their game. Players without a
// registered phone number or without SMS opt-in are skipped silently.
func (n *Notifier) SendGameOutcome(_ context.Context, to player.Info, outcome notifier.Outcome) error {
	if !to.SMSOptIn || to.PhoneNumber == nil || *to.PhoneNumber == "" {
		log.Debug("Skipping SMS, player has no opted-in phone number", "wallet", to.WalletAddress)
		return nil
	}
	if n.api == nil || n.from == "" {
		log.Warn("Twilio is not configured. Skipping SMS notification.")
		return errors.New("twilio is not configured")
	}

	var body string
	if outcome.Won {
		body = fmt.Sprintf("You won your %s game on Crypto Boards! %s SOL is headed to your wallet.", outcome.GameType, outcome.Amount.SOL())
	} else {
		body = fmt.Sprintf("Your %s game on Crypto Boards is over. Better luck next time! Entry fee: %s SOL.", outcome.GameType, outcome.Amount.SOL())
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(*to.PhoneNumber)
	params.SetFrom(n.from)
	params.SetBody(body)

	if _, err := n.api.CreateMessage(params); err != nil {
		n.metrics.IncSMSNotifFailed()
		log.Error("Failed to send SMS", "error", err, "gameID", outcome.GameID, "wallet", to.WalletAddress)
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	n.metrics.IncSMSNotifSent()
	log.Info("Sent outcome SMS", "gameID", outcome.GameID, "wallet", to.WalletAddress, "won", outcome.Won)
	return nil
}

// SendSettlementSummary is not an SMS concern; the ops channel handles it.
func (n *Notifier) SendSettlementSummary(_ context.Context, _ notifier.Settlement) error {
	return nil
}
