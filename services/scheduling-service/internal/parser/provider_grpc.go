//go:build protogen

package parser

import (
	"context"
	"time"

	"github.com/rollcall-app/rollcall/libs/grpcx"
	parserv1 "github.com/rollcall-app/rollcall/protos/gen/parser/v1"
	"google.golang.org/protobuf/types/known/timestamppb"
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

type grpcProvider struct {
	client parserv1.ParserServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: parserv1.NewParserServiceClient(conn)}, nil
}

func (p *grpcProvider) ParseFreeText(ctx context.Context, participantID string, text string) (ParseResult, error) {
	// The parser resolves relative phrases ("next friday") against the
	// request time.
	resp, err := p.client.ParseFreeText(ctx, &parserv1.ParseFreeTextRequest{
		ParticipantId: participantID,
		Text:          text,
		RequestedAt:   timestamppb.New(time.Now().UTC()),
	})
	if err != nil {
		return ParseResult{}, err
	}
	out := ParseResult{Confidence: resp.GetConfidence()}
	for _, pat := range resp.GetPatterns() {
		out.Patterns = append(out.Patterns, ParsedPattern{
			Weekday:  int(pat.GetWeekday()),
			Start:    pat.GetStart(),
			End:      pat.GetEnd(),
			Polarity: pat.GetPolarity(),
		})
	}
	return out, nil
}
