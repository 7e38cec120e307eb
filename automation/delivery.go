package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrSendPermission marks a channel failure caused by a missing send
// permission rather than a transient fault. It is surfaced to the user once,
// not once per call.
var ErrSendPermission = errors.New("send permission denied")

// ChannelManual is the pseudo-channel reported when every real channel failed
// and the text is handed to the user to send by hand.
const ChannelManual = "manual"

// Channel is one way of getting a text message out. Implementations are black
// boxes: success or an error, no partial states.
type Channel interface {
	Name() string
	Send(ctx context.Context, phoneNumber, text string) error
}

// DeliveryResult reports how a message left the building, or didn't.
type DeliveryResult struct {
	OK          bool   `json:"ok"`
	ChannelUsed string `json:"channelUsed"`
	// ManualText carries the exact message for the user to send by hand when
	// all programmatic channels failed.
	ManualText string `json:"manualText,omitempty"`
}

// Dispatcher tries channels in order and stops at the first success. A
// channel failure is isolated: it never prevents the next attempt. Exhausting
// the chain degrades to a manual-send instruction, never a silent drop.
type Dispatcher struct {
	channels         []Channel
	log              zerolog.Logger
	permissionWarned bool
}

func NewDispatcher(log zerolog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		log:      log.With().Str("component", "delivery").Logger(),
	}
}

func (d *Dispatcher) Send(ctx context.Context, phoneNumber, text string) DeliveryResult {
	for _, ch := range d.channels {
		err := ch.Send(ctx, phoneNumber, text)
		if err == nil {
			d.log.Info().Str("channel", ch.Name()).Str("phone", phoneNumber).Msg("message delivered")
			return DeliveryResult{OK: true, ChannelUsed: ch.Name()}
		}
		if errors.Is(err, ErrSendPermission) {
			if !d.permissionWarned {
				d.permissionWarned = true
				d.log.Error().Str("channel", ch.Name()).Msg("send permission denied, grant it to restore automatic replies")
			}
			continue
		}
		d.log.Warn().Str("channel", ch.Name()).Err(err).Msg("channel failed, falling through")
	}

	d.log.Warn().Str("phone", phoneNumber).Str("text", text).
		Msg("all channels failed, message needs to be sent manually")
	return DeliveryResult{OK: false, ChannelUsed: ChannelManual, ManualText: text}
}

// GatewayChannel posts to a direct-send SMS gateway.
type GatewayChannel struct {
	http *resty.Client
}

func NewGatewayChannel(url string) *GatewayChannel {
	return &GatewayChannel{
		http: resty.New().SetBaseURL(url).SetTimeout(10 * time.Second),
	}
}

func (g *GatewayChannel) Name() string { return "gateway" }

func (g *GatewayChannel) Send(ctx context.Context, phoneNumber, text string) error {
	if g.http.BaseURL == "" {
		return fmt.Errorf("gateway channel not configured")
	}
	resp, err := g.http.R().SetContext(ctx).
		SetBody(map[string]string{"to": phoneNumber, "text": text}).
		Post("/send")
	if err != nil {
		return err
	}
	if resp.StatusCode() == 403 {
		return ErrSendPermission
	}
	if resp.IsError() {
		return fmt.Errorf("gateway send: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}

// RelayChannel hands the message to a share/intent style relay that lets
// another app on the device do the sending.
type RelayChannel struct {
	http *resty.Client
}

func NewRelayChannel(url string) *RelayChannel {
	return &RelayChannel{
		http: resty.New().SetBaseURL(url).SetTimeout(10 * time.Second),
	}
}

func (r *RelayChannel) Name() string { return "relay" }

func (r *RelayChannel) Send(ctx context.Context, phoneNumber, text string) error {
	if r.http.BaseURL == "" {
		return fmt.Errorf("relay channel not configured")
	}
	resp, err := r.http.R().SetContext(ctx).
		SetBody(map[string]string{"recipient": phoneNumber, "body": text}).
		Post("/share")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("relay send: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
