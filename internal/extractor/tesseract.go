package extractor

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/veridose/boxscan/internal/utils"
)

// TesseractService recognizes text through the Tesseract engine. A fresh
// client is created per call so concurrent region workers never share
// native state.
type TesseractService struct {
	languages []string
}

// NewTesseractService creates a Tesseract-backed text service. Languages
// default to English when empty.
func NewTesseractService(languages []string) *TesseractService {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractService{languages: languages}
}

// Recognize runs Tesseract on the image. The engine has no cancellation
// hook, so the call runs in its own goroutine and the caller's context
// only bounds the wait.
func (s *TesseractService) Recognize(ctx context.Context, img image.Image) (Recognition, error) {
	if img == nil {
		return Recognition{}, ErrInvalidInput
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	type outcome struct {
		rec Recognition
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rec, err := s.recognizeBytes(data)
		done <- outcome{rec: rec, err: err}
	}()

	select {
	case out := <-done:
		return out.rec, out.err
	case <-ctx.Done():
		return Recognition{}, ctx.Err()
	}
}

func (s *TesseractService) recognizeBytes(data []byte) (Recognition, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(s.languages...); err != nil {
		return Recognition{}, fmt.Errorf("%w: set language: %v", ErrServiceUnavailable, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return Recognition{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	text, err := client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return Recognition{Text: text, Confidence: 1.0}, nil
}
