// Package notify delivers alerts over external channels (email, SMS) through
// shoutrrr service URLs. The web channel never goes through here; it is
// satisfied by the alert row itself.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// Notifier sends an alert over external channels. Implementations report
// failure with an error; the engine applies the bounded-retry policy.
type Notifier interface {
	SendEmailAlert(ctx context.Context, alert *entities.Alert) error
	SendSMSAlert(ctx context.Context, alert *entities.Alert) error
}

// ShoutrrrNotifier routes email and SMS deliveries to configured shoutrrr
// service URLs (smtp://, twilio://, ...).
type ShoutrrrNotifier struct {
	email *router.ServiceRouter
	sms   *router.ServiceRouter
	log   *zap.Logger
}

// NewShoutrrrNotifier builds a notifier from shoutrrr URLs. Either list may
// be empty; sends on an unconfigured channel fail so the retry bookkeeping
// still applies.
func NewShoutrrrNotifier(emailURLs, smsURLs []string, log *zap.Logger) (*ShoutrrrNotifier, error) {
	n := &ShoutrrrNotifier{log: log}
	if len(emailURLs) > 0 {
		sender, err := shoutrrr.CreateSender(emailURLs...)
		if err != nil {
			return nil, fmt.Errorf("invalid email notifier URLs: %w", err)
		}
		n.email = sender
	}
	if len(smsURLs) > 0 {
		sender, err := shoutrrr.CreateSender(smsURLs...)
		if err != nil {
			return nil, fmt.Errorf("invalid sms notifier URLs: %w", err)
		}
		n.sms = sender
	}
	return n, nil
}

// SendEmailAlert implements Notifier.
func (n *ShoutrrrNotifier) SendEmailAlert(ctx context.Context, alert *entities.Alert) error {
	return n.send(ctx, n.email, entities.ChannelEmail, alert)
}

// SendSMSAlert implements Notifier.
func (n *ShoutrrrNotifier) SendSMSAlert(ctx context.Context, alert *entities.Alert) error {
	return n.send(ctx, n.sms, entities.ChannelSMS, alert)
}

func (n *ShoutrrrNotifier) send(ctx context.Context, sender *router.ServiceRouter, channel string, alert *entities.Alert) error {
	if sender == nil {
		return fmt.Errorf("%s channel not configured", channel)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := types.Params{"title": alert.Title}
	sendErrs := sender.Send(alert.Message, &params)
	var failed []error
	for _, err := range sendErrs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		err := errors.Join(failed...)
		n.log.Warn("alert delivery failed",
			zap.Uint("alert_id", alert.ID),
			zap.String("channel", channel),
			zap.Error(err))
		return fmt.Errorf("failed to deliver alert %d via %s: %w", alert.ID, channel, err)
	}
	return nil
}
