//go:build windows || !cgo

package services

import (
	"errors"
)

// OCRService is not supported on Windows builds; receipt processing is
// disabled there.
type OCRService struct{}

// OCRResult contains the OCR processing result
type OCRResult struct {
	Text       string
	Confidence int
}

// NewOCRService returns an error on Windows
func NewOCRService(language string) (*OCRService, error) {
	return nil, errors.New("OCR is not supported on Windows builds")
}

// ProcessImage is unavailable on Windows
func (s *OCRService) ProcessImage(imageBytes []byte) (*OCRResult, error) {
	return nil, errors.New("OCR is not supported on Windows builds")
}

// ProcessImageFromPath is unavailable on Windows
func (s *OCRService) ProcessImageFromPath(imagePath string) (*OCRResult, error) {
	return nil, errors.New("OCR is not supported on Windows builds")
}

// Close is a no-op on Windows
func (s *OCRService) Close() error {
	return nil
}
