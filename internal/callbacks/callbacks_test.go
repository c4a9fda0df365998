package callbacks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/domain"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	// Пустой реестр
	if r.Count() != 0 {
		t.Errorf("expected empty registry")
	}

	// Регистрация
	r.Register(BoneEval, Trace(BoneEval))
	if r.Count() != 1 {
		t.Errorf("expected 1 callback, got %d", r.Count())
	}

	// Получение
	cb, err := r.Get(BoneEval)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if cb == nil {
		t.Error("callback should not be nil")
	}

	// Несуществующее имя
	_, err = r.Get("unknown")
	if !errors.Is(err, ErrCallbackNotFound) {
		t.Errorf("expected ErrCallbackNotFound, got %v", err)
	}

	// Has
	if !r.Has(BoneEval) {
		t.Error("should have bone.eval")
	}
	if r.Has("unknown") {
		t.Error("should not have unknown")
	}

	// Unregister
	r.Unregister(BoneEval)
	if r.Has(BoneEval) {
		t.Error("bone.eval should be unregistered")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	names := StandardNames()
	if r.Count() != len(names) {
		t.Errorf("expected %d callbacks, got %d", len(names), r.Count())
	}
	for _, name := range names {
		if !r.Has(name) {
			t.Errorf("missing standard callback %s", name)
		}
	}

	got := r.Names()
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("names should be sorted: %v", got)
		}
	}
}

func TestRegistry_ImplementsCallbackSource(t *testing.T) {
	var _ depsgraph.CallbackSource = DefaultRegistry()
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := telemetry.WithLogger(context.Background(), logger)

	Trace(BoneEval)(ctx, &domain.Channel{Name: "Hand"})

	out := buf.String()
	if !strings.Contains(out, "callback=bone.eval") {
		t.Errorf("log should contain callback name, got %q", out)
	}
	if !strings.Contains(out, `item="bone Hand"`) {
		t.Errorf("log should describe the item, got %q", out)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		item any
		want string
	}{
		{"nil", nil, "<nil>"},
		{"object", domain.NewObject("Cube", domain.ObjectMesh), "object Cube"},
		{"channel", &domain.Channel{Name: "Hand"}, "bone Hand"},
		{"pose", &domain.Pose{Channels: []*domain.Channel{{Name: "A"}, {Name: "B"}}}, "pose (2 channels)"},
		{"other", 42, "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.item); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
