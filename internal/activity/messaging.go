package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/edvin/commerce-messaging/internal/channel"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/metrics"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/store"
)

// Sender delivers one message through the channel gateway.
// *channel.Client satisfies this interface.
type Sender interface {
	Send(ctx context.Context, req channel.SendRequest) (*channel.SendResponse, error)
}

// Messaging contains the activity that sends customer messages.
type Messaging struct {
	sender Sender
	dir    store.Directory
	logger zerolog.Logger
}

func NewMessaging(sender Sender, dir store.Directory, logger zerolog.Logger) *Messaging {
	return &Messaging{
		sender: sender,
		dir:    dir,
		logger: logger.With().Str("component", "messaging-activity").Logger(),
	}
}

// SendMessageParams holds parameters for the SendMessage activity. Channel
// credentials are looked up by channel id and never travel in the params.
type SendMessageParams struct {
	To        string              `json:"to"`
	Template  model.Template      `json:"template"`
	Variables map[string]string   `json:"variables,omitempty"`
	Channel   model.ChannelConfig `json:"channel"`
	// Reference is the idempotency key forwarded to the channel gateway.
	Reference string `json:"reference"`
}

type SendMessageResult struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// SendMessage renders the template and sends it to params.To.
//   - render failure, 4xx (except 408/429), malformed reply → non-retryable
//   - 5xx, 408, 429, network error → retryable
func (a *Messaging) SendMessage(ctx context.Context, params SendMessageParams) (*SendMessageResult, error) {
	res, err := a.send(ctx, params)
	outcome := engine.Classify(err)
	metrics.ActivityExecutions.WithLabelValues(NameSendMessage, string(outcome)).Inc()
	metrics.MessagesSent.WithLabelValues(params.Channel.Provider, string(outcome)).Inc()
	if err != nil {
		a.logger.Warn().Err(err).
			Str("reference", params.Reference).
			Str("outcome", string(outcome)).
			Msg("SendMessage failed")
		return nil, engine.TemporalError(err)
	}
	a.logger.Info().
		Str("reference", params.Reference).
		Str("message_id", res.MessageID).
		Msg("SendMessage")
	return res, nil
}

func (a *Messaging) send(ctx context.Context, params SendMessageParams) (*SendMessageResult, error) {
	if params.To == "" {
		return nil, engine.Fatal("send message", errors.New("recipient address is empty"))
	}

	body, err := Render(params.Template, params.Variables)
	if err != nil {
		return nil, engine.Fatal("render template", err)
	}

	token, err := a.dir.ChannelToken(ctx, params.Channel.ID)
	if err != nil {
		return nil, classifyLookup("channel credentials", err)
	}

	resp, err := a.sender.Send(ctx, channel.SendRequest{
		To:        params.To,
		Body:      body,
		Sender:    params.Channel.Sender,
		Provider:  params.Channel.Provider,
		Reference: params.Reference,
		Token:     token,
	})
	if err != nil {
		return nil, classifySend(err)
	}
	return &SendMessageResult{MessageID: resp.MessageID, Status: resp.Status}, nil
}

// Render executes a message template against vars. Unknown placeholders are
// an error.
func Render(t model.Template, vars map[string]string) (string, error) {
	tmpl, err := template.New(t.Kind).Option("missingkey=error").Parse(t.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", t.Kind, err)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("execute %s template: %w", t.Kind, err)
	}
	return sb.String(), nil
}

func classifySend(err error) error {
	var statusErr *channel.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Retryable() {
			return engine.Transient("send message", err)
		}
		return engine.Fatal("send message", err)
	}
	if errors.Is(err, channel.ErrMalformedResponse) {
		return engine.Fatal("send message", err)
	}
	return engine.Transient("send message", err)
}

// classifyLookup treats missing records as permanent and anything else as a
// temporary directory failure.
func classifyLookup(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return engine.Fatal(op, err)
	}
	return engine.Transient(op, err)
}
