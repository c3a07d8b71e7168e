package llm

import (
	"context"
	"strings"
	"testing"
)

func TestMockGenerate(t *testing.T) {
	service := NewMockLLM()
	ctx := context.Background()

	reply, err := service.Generate(ctx, "Turn on the lights", "", 150)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(reply, "lights") {
		t.Errorf("Expected a lights-related reply, got %q", reply)
	}

	reply, _ = service.Generate(ctx, "Tell me a story", "", 150)
	if !strings.Contains(reply, "Once upon a time") {
		t.Errorf("Expected a story reply, got %q", reply)
	}

	reply, _ = service.Generate(ctx, "What's the weather?", "", 150)
	if reply == "" {
		t.Error("Expected a fallback reply")
	}
}
