package health

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunAll(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("store", func(ctx context.Context) Status { return StatusOK })
	c.Register("llm", func(ctx context.Context) Status { return StatusDown })

	results := c.RunAll(context.Background())
	assert.Equal(t, StatusOK, results["store"])
	assert.Equal(t, StatusDown, results["llm"])
}

func TestIsReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()), "no checks means ready")

	c.Register("store", func(ctx context.Context) Status { return StatusOK })
	assert.True(t, c.IsReady(context.Background()))

	c.Register("llm", func(ctx context.Context) Status { return StatusDown })
	assert.False(t, c.IsReady(context.Background()))
}
