// Package media handles the youtube/podcast kinds of spec §4.4: download
// audio to a temp file, then call a speech-to-text backend. The backend
// itself is an external collaborator (spec §1: "Concrete AI provider SDKs...
// provider selection is enumerated but not specified here") — this package
// defines the narrow interface a real STT integration implements. It ships
// no implementation; with a nil Transcriber, Extract fails with
// ErrUnavailable.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/docpipe/docpipe/extractors"
)

// Transcriber is the external speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcript string, err error)
}

// Extractor implements extractors.Extractor for document.KindYouTube and
// document.KindPodcast by downloading the referenced media to a temp file
// and delegating to a Transcriber.
type Extractor struct {
	Client      *http.Client
	Transcriber Transcriber
}

// New builds a media extractor. A nil transcriber makes every call fail
// with ErrUnavailable, matching "no extractor library installed" (spec §7).
func New(t Transcriber) *Extractor {
	return &Extractor{Client: http.DefaultClient, Transcriber: t}
}

var _ extractors.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, src extractors.Source) (extractors.Result, error) {
	if e.Transcriber == nil {
		return extractors.Result{}, fmt.Errorf("%w: no speech-to-text backend configured", extractors.ErrUnavailable)
	}
	if src.URL == "" {
		return extractors.Result{}, fmt.Errorf("%w: media extractor requires a URL", extractors.ErrMalformed)
	}

	audioPath, err := e.download(ctx, src.URL)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: download media: %v", extractors.ErrUnavailable, err)
	}
	defer os.Remove(audioPath)

	transcript, err := e.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return extractors.Result{}, fmt.Errorf("%w: transcribe: %v", extractors.ErrUnavailable, err)
	}
	if transcript == "" {
		return extractors.Result{}, fmt.Errorf("%w: empty transcript", extractors.ErrMalformed)
	}

	return extractors.Result{
		RawText:           transcript,
		FormattedMarkdown: transcript,
	}, nil
}

func (e *Extractor) download(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "docpipe-media-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
