package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromContextDefault(t *testing.T) {
	log := FromContext(context.Background())
	log.Info().Msg("no panic from default logger")

	log = FromContext(nil)
	log.Info().Msg("nil context also falls back")
}

func TestWithStrPropagates(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithStr(ctx, "category", "pota")
	ctx = WithStr(ctx, "run_id", "abc-123")

	log := FromContext(ctx)
	log.Info().Msg("tagged")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["category"] != "pota" || entry["run_id"] != "abc-123" {
		t.Errorf("missing run-scoped fields: %v", entry)
	}
}
