//go:build !protogen

package parser

import (
	"context"
)

// ParsedPattern is one weekly availability statement extracted from free
// text, e.g. "free weekday evenings after 6" yields five of these.
type ParsedPattern struct {
	Weekday  int
	Start    string
	End      string
	Polarity string
}

type ParseResult struct {
	Patterns   []ParsedPattern
	Confidence float64
}

type Provider interface {
	ParseFreeText(ctx context.Context, participantID string, text string) (ParseResult, error)
}

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
