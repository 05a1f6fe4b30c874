package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", false)

	log.Info().Str("job_id", "job-1").Msg("fired")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "job-1", entry["job_id"])
	assert.Equal(t, "transferflow", entry["service"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "Upper case", level: "WARN", want: zerolog.WarnLevel},
		{name: "Empty", level: "", want: zerolog.InfoLevel},
		{name: "Unknown", level: "loud", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewWithWriter(&bytes.Buffer{}, tt.level, false)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", true)

	log.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}
