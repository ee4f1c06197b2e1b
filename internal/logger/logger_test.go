package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitTo_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	InitTo(&buf, "warn", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Msg("hidden")
	log.Warn().Str("symbol", "AAPL").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["symbol"] != "AAPL" || entry["level"] != "warn" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestInitTo_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitTo(&buf, "loud", false)
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("got level %v", zerolog.GlobalLevel())
	}
}
