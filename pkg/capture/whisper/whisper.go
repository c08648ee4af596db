// Package whisper provides a capture provider backed by a local whisper.cpp
// server (whisper-server, REST API at POST /inference).
//
// whisper.cpp is a batch transcription engine, so the provider pairs with an
// [AudioSource] that records one utterance of WAV audio per call (the CLI
// ships a file-based source; a deployment wires its own recorder). The
// recorded audio is submitted as multipart/form-data and the JSON response's
// text becomes the transcript. whisper.cpp reports no confidence score, so
// captures carry 1.0.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/parlando-app/parlando/pkg/capture"
)

// Compile-time assertion that Provider implements capture.Provider.
var _ capture.Provider = (*Provider)(nil)

// AudioSource records one utterance and returns it as a complete WAV file.
// Returning an error aborts the capture; a [capture.Error] passes through
// unchanged so sources can report their own categories (microphone denied,
// user abort).
type AudioSource func(ctx context.Context) ([]byte, error)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the language hint sent to the server (e.g. "en", "de").
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithHTTPClient replaces the HTTP client, for tests and custom timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// Provider submits recorded utterances to a whisper.cpp server.
type Provider struct {
	serverURL string
	language  string
	source    AudioSource
	client    *http.Client
}

// New returns a Provider for the whisper-server at serverURL (e.g.
// "http://localhost:8080"). Both serverURL and source are required.
func New(serverURL string, source AudioSource, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	if source == nil {
		return nil, errors.New("whisper: audio source must not be nil")
	}
	p := &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		language:  "en",
		source:    source,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// TranscribeOnce implements [capture.Provider].
func (p *Provider) TranscribeOnce(ctx context.Context) (capture.Capture, error) {
	wav, err := p.source(ctx)
	if err != nil {
		var ce *capture.Error
		if errors.As(err, &ce) {
			return capture.Capture{}, err
		}
		if ctx.Err() != nil {
			return capture.Capture{}, capture.NewError(capture.KindAborted, ctx.Err())
		}
		return capture.Capture{}, capture.NewError(capture.KindNotAllowed, fmt.Errorf("whisper: record: %w", err))
	}

	text, err := p.infer(ctx, wav)
	if err != nil {
		if ctx.Err() != nil {
			return capture.Capture{}, capture.NewError(capture.KindAborted, ctx.Err())
		}
		return capture.Capture{}, capture.NewError(capture.KindNetwork, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return capture.Capture{}, capture.NewError(capture.KindNoSpeech, nil)
	}
	return capture.Capture{Transcript: text, Confidence: 1.0}, nil
}

// infer POSTs wav to the /inference endpoint as multipart/form-data and
// returns the transcribed text.
func (p *Provider) infer(ctx context.Context, wav []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return result.Text, nil
}
