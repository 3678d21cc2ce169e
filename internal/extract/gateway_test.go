package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/architect-studio/internal/llm"
)

// fakeProvider returns canned responses and counts calls.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &llm.CompletionResponse{Text: text, StopReason: llm.StopReasonEndTurn}, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req llm.CompletionRequest, out chan<- llm.Token) error {
	close(out)
	return nil
}

func (f *fakeProvider) ModelID() string { return "fake" }

func newGateway(p llm.Provider) *Gateway {
	g := NewGateway(p, 8, zerolog.Nop())
	g.retryCfg.BaseDelay = 0
	return g
}

func TestExtract_Success(t *testing.T) {
	p := &fakeProvider{responses: []string{
		"Here you go:\n{\"name\":\"Hero Section\",\"category\":\"Layout\",\"tags\":[\"hero\",\"landing\"],\"code\":\"<section/>\"}",
	}}
	g := newGateway(p)

	d, err := g.Extract(context.Background(), "<section class=\"hero\">...</section>")
	require.NoError(t, err)
	assert.Equal(t, "Hero Section", d.Name)
	assert.Equal(t, "Layout", d.Category)
	assert.Equal(t, []string{"hero", "landing"}, d.Tags)
	assert.Equal(t, "<section/>", d.Code)
}

func TestExtract_EmptyContent(t *testing.T) {
	p := &fakeProvider{}
	g := newGateway(p)

	_, err := g.Extract(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, 0, p.calls, "empty content must not reach the model")
}

func TestExtract_NonJSONOutput(t *testing.T) {
	p := &fakeProvider{responses: []string{"Sorry, I can't help with that."}}
	g := newGateway(p)

	_, err := g.Extract(context.Background(), "some code")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestExtract_MalformedJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"name": "Broken", "category":`}}
	g := newGateway(p)

	_, err := g.Extract(context.Background(), "some code")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestExtract_UnknownCategory(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"name":"Widget","category":"Gadgets","tags":[],"code":""}`}}
	g := newGateway(p)

	_, err := g.Extract(context.Background(), "some code")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestExtract_RetriesTransientErrors(t *testing.T) {
	p := &fakeProvider{
		errs: []error{&llm.TransientError{StatusCode: 529}, nil},
		responses: []string{"",
			`{"name":"Card","category":"Cards","tags":["display"],"code":"<div/>"}`,
		},
	}
	g := newGateway(p)

	d, err := g.Extract(context.Background(), "card markup")
	require.NoError(t, err)
	assert.Equal(t, "Card", d.Name)
	assert.Equal(t, 2, p.calls)
}

func TestExtract_DoesNotRetryFatalErrors(t *testing.T) {
	p := &fakeProvider{errs: []error{errors.New("invalid api key")}}
	g := newGateway(p)

	_, err := g.Extract(context.Background(), "card markup")
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestExtract_MemoizesByContent(t *testing.T) {
	p := &fakeProvider{responses: []string{
		`{"name":"Nav","category":"Layout","tags":["nav"],"code":"<nav/>"}`,
	}}
	g := newGateway(p)

	first, err := g.Extract(context.Background(), "<nav>...</nav>")
	require.NoError(t, err)
	second, err := g.Extract(context.Background(), "<nav>...</nav>")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls, "identical content must be served from cache")
}
