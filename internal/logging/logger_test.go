package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("courtside", "production", "debug").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("courtside", "production", "bogus").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("courtside", "development", "").GetLevel())
}

func TestContextRoundTrip(t *testing.T) {
	logger := New("courtside", "production", "warn")
	ctx := IntoContext(context.Background(), logger)

	assert.Equal(t, zerolog.WarnLevel, FromContext(ctx).GetLevel())
	assert.Equal(t, zerolog.Disabled, FromContext(context.Background()).GetLevel())
}
