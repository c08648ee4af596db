// Package gateway provides a capture provider backed by a speech gateway's
// WebSocket API. The gateway owns microphone access and streaming
// recognition; this provider performs one listen request per call and waits
// for the final transcript message.
//
// Wire protocol (JSON text messages):
//
//	client → gateway:  {"type":"listen","language":"en"}
//	gateway → client:  {"type":"transcript","text":"...","confidence":0.93,"final":true}
//	gateway → client:  {"type":"error","reason":"no-speech"}
//
// Non-final transcript messages may arrive before the final one and are
// ignored. Error reasons map onto the capture error kinds; unknown reasons
// are reported as network errors.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/parlando-app/parlando/pkg/capture"
)

// Compile-time assertion that Provider implements capture.Provider.
var _ capture.Provider = (*Provider)(nil)

// Option is a functional option for configuring the gateway Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language tag sent with each listen request.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithToken sets the bearer token presented when dialing the gateway.
func WithToken(token string) Option {
	return func(p *Provider) { p.token = token }
}

// Provider dials the gateway once per capture.
type Provider struct {
	url      string
	language string
	token    string
}

// New returns a Provider for the gateway at url (ws:// or wss://). url must
// be non-empty.
func New(url string, opts ...Option) (*Provider, error) {
	if url == "" {
		return nil, errors.New("gateway: url must not be empty")
	}
	p := &Provider{url: url, language: "en"}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type listenRequest struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
}

type gatewayMessage struct {
	Type       string  `json:"type"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Final      bool    `json:"final,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// TranscribeOnce implements [capture.Provider].
func (p *Provider) TranscribeOnce(ctx context.Context) (capture.Capture, error) {
	headers := http.Header{}
	if p.token != "" {
		headers.Set("Authorization", "Bearer "+p.token)
	}

	conn, _, err := websocket.Dial(ctx, p.url, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		if ctx.Err() != nil {
			return capture.Capture{}, capture.NewError(capture.KindAborted, ctx.Err())
		}
		return capture.Capture{}, capture.NewError(capture.KindNetwork, fmt.Errorf("gateway: dial: %w", err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "capture done")

	req, err := json.Marshal(listenRequest{Type: "listen", Language: p.language})
	if err != nil {
		return capture.Capture{}, capture.NewError(capture.KindNetwork, fmt.Errorf("gateway: marshal request: %w", err))
	}
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		return capture.Capture{}, capture.NewError(capture.KindNetwork, fmt.Errorf("gateway: send listen: %w", err))
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return capture.Capture{}, capture.NewError(capture.KindAborted, ctx.Err())
			}
			return capture.Capture{}, capture.NewError(capture.KindNetwork, fmt.Errorf("gateway: read: %w", err))
		}

		var msg gatewayMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "transcript":
			if !msg.Final {
				continue
			}
			if msg.Text == "" {
				return capture.Capture{}, capture.NewError(capture.KindNoSpeech, nil)
			}
			return capture.Capture{Transcript: msg.Text, Confidence: msg.Confidence}, nil
		case "error":
			return capture.Capture{}, capture.NewError(kindForReason(msg.Reason), fmt.Errorf("gateway: %s", msg.Reason))
		}
	}
}

// kindForReason maps gateway error reasons onto capture error kinds.
func kindForReason(reason string) capture.ErrorKind {
	switch capture.ErrorKind(reason) {
	case capture.KindNotAllowed, capture.KindNoSpeech, capture.KindAborted:
		return capture.ErrorKind(reason)
	}
	return capture.KindNetwork
}
