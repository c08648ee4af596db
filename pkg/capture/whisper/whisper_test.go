package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parlando-app/parlando/pkg/capture"
)

func staticSource(wav []byte) AudioSource {
	return func(context.Context) ([]byte, error) { return wav, nil }
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", staticSource(nil)); err == nil {
		t.Error("expected error for empty server URL")
	}
	if _, err := New("http://localhost:8080", nil); err == nil {
		t.Error("expected error for nil audio source")
	}
}

func TestTranscribeOnce_Success(t *testing.T) {
	t.Parallel()

	wav := []byte("RIFFfakewav")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		if string(body) != string(wav) {
			t.Error("uploaded audio does not match the recorded utterance")
		}
		if lang := r.FormValue("language"); lang != "de" {
			t.Errorf("language = %q", lang)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" erinnere mich an den Zahnarzt "}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, staticSource(wav), WithLanguage("de"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := p.TranscribeOnce(context.Background())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got.Transcript != "erinnere mich an den Zahnarzt" {
		t.Errorf("transcript = %q", got.Transcript)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0", got.Confidence)
	}
}

func TestTranscribeOnce_EmptyTextIsNoSpeech(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"  "}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, staticSource([]byte("x")))
	_, err := p.TranscribeOnce(context.Background())
	if capture.KindOf(err) != capture.KindNoSpeech {
		t.Errorf("err = %v, want no-speech", err)
	}
}

func TestTranscribeOnce_ServerErrorIsNetwork(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New(srv.URL, staticSource([]byte("x")))
	_, err := p.TranscribeOnce(context.Background())
	if capture.KindOf(err) != capture.KindNetwork {
		t.Errorf("err = %v, want network", err)
	}
}

func TestTranscribeOnce_SourceCaptureErrorPassesThrough(t *testing.T) {
	t.Parallel()

	denied := capture.NewError(capture.KindNotAllowed, errors.New("mic busy"))
	p, _ := New("http://localhost:1", func(context.Context) ([]byte, error) {
		return nil, denied
	})
	_, err := p.TranscribeOnce(context.Background())
	if capture.KindOf(err) != capture.KindNotAllowed {
		t.Errorf("err = %v, want not-allowed", err)
	}
}
