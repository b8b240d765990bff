package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"console", false},
		{"xml", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			err := Config{Format: tt.format}.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate(%q) = %v", tt.format, err)
		})
	}
}

func TestNew(t *testing.T) {
	log, err := New(Config{Level: zapcore.WarnLevel, Format: "json"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))

	_, err = New(Config{Format: "yaml"})
	assert.Error(t, err)
}

func TestNewTestObserves(t *testing.T) {
	log, logs := NewTest()
	log.Debug("parsed", zap.String("parser", "de_index_geb"))

	entries := logs.FilterMessage("parsed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "de_index_geb", entries[0].ContextMap()["parser"])
}
