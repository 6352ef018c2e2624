package slack

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cryptoboards/cryptoboards/internal/metrics"
	"github.com/cryptoboards/cryptoboards/internal/notifier"
	"github.com/cryptoboards/cryptoboards/internal/player"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = (*Notifier)(nil)

// Notifier posts settlement summaries to the ops channel.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// SendGameOutcome is a player-facing notification, handled by the SMS notifier.
func (s *Notifier) SendGameOutcome(_ context.Context, _ player.Info, _ notifier.Outcome) error {
	return nil
}

// SendSettlementSummary posts a Block Kit summary of a settled game.
func (s *Notifier) SendSettlementSummary(ctx context.Context, settlement notifier.Settlement) error {
	msg := s.formatSettlementSummary(settlement)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(msg.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return nil
}

// formatSettlementSummary creates the Slack message for a settled game using Block Kit.
func (s *Notifier) formatSettlementSummary(settlement notifier.Settlement) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "💰 Game settled 💰", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("Game: %s (%s)\nPot: %s SOL\nPlatform fee: %s SOL\nWinner payout: %s SOL",
		settlement.GameID,
		settlement.GameType,
		settlement.TotalPot.SOL(),
		settlement.PlatformFee.SOL(),
		settlement.WinnerAmount.SOL(),
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	walletsText := fmt.Sprintf("🏆 Winner: %s\nLoser: %s", settlement.WinnerWallet, settlement.LoserWallet)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", walletsText, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}
