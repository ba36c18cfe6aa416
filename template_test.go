package stitch_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"impractical.co/stitch"
)

func executeToString(t *testing.T, tmpl stitch.Template, data any) string {
	t.Helper()
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		t.Fatalf("error executing template: %s", err)
	}
	return out.String()
}

func literal(s string) stitch.TemplateFunc {
	return func(w io.Writer, _ any) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestTemplateRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry, err := stitch.NewTemplateRegistry(map[string]stitch.Template{
		"hero": literal("hero"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := registry.Register("text", literal("text")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	for _, id := range []string{"hero", "text"} {
		tmpl, err := registry.ResolveTemplate(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error resolving %q: %s", id, err)
		}
		if output := executeToString(t, tmpl, nil); output != id {
			t.Errorf("expected %q, got %q", id, output)
		}
	}

	if err := registry.Register("hero", literal("other")); !errors.Is(err, stitch.ErrDuplicateTemplate) {
		t.Errorf("expected %v registering a duplicate, got %v", stitch.ErrDuplicateTemplate, err)
	}
	if err := registry.Register("", literal("empty")); !errors.Is(err, stitch.ErrNoTemplateID) {
		t.Errorf("expected %v registering without an id, got %v", stitch.ErrNoTemplateID, err)
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Error("expected an error registering a nil template, got nil")
	}
	if _, err := registry.ResolveTemplate(ctx, "gallery"); !errors.Is(err, stitch.ErrTemplateNotFound) {
		t.Errorf("expected %v resolving an unknown template, got %v", stitch.ErrTemplateNotFound, err)
	}
	if _, err := registry.ResolveTemplate(ctx, ""); !errors.Is(err, stitch.ErrNoTemplateID) {
		t.Errorf("expected %v resolving an empty id, got %v", stitch.ErrNoTemplateID, err)
	}
}

func TestTemplateRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var registry stitch.TemplateRegistry
	if _, err := registry.ResolveTemplate(context.Background(), "hero"); !errors.Is(err, stitch.ErrTemplateNotFound) {
		t.Errorf("expected %v, got %v", stitch.ErrTemplateNotFound, err)
	}
	registry.MustRegister("hero", literal("hero"))
	if _, err := registry.ResolveTemplate(context.Background(), "hero"); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	t.Parallel()

	var registry stitch.TemplateRegistry
	registry.MustRegister("hero", literal("hero"))
	defer func() {
		if recover() == nil {
			t.Error("expected MustRegister to panic")
		}
	}()
	registry.MustRegister("hero", literal("hero"))
}

type erroringResolver struct {
	err error
}

func (r erroringResolver) ResolveTemplate(_ context.Context, _ string) (stitch.Template, error) {
	return nil, r.err
}

func TestResolverChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	errBackend := errors.New("backend unavailable")
	first := &stitch.TemplateRegistry{}
	first.MustRegister("hero", literal("first hero"))
	second := &stitch.TemplateRegistry{}
	second.MustRegister("hero", literal("second hero"))
	second.MustRegister("text", literal("second text"))

	chain := stitch.ResolverChain{first, second}

	tmpl, err := chain.ResolveTemplate(ctx, "hero")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if output := executeToString(t, tmpl, nil); output != "first hero" {
		t.Errorf("expected the first resolver to win, got %q", output)
	}

	tmpl, err = chain.ResolveTemplate(ctx, "text")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if output := executeToString(t, tmpl, nil); output != "second text" {
		t.Errorf("expected to fall through to the second resolver, got %q", output)
	}

	if _, err := chain.ResolveTemplate(ctx, "gallery"); !errors.Is(err, stitch.ErrTemplateNotFound) {
		t.Errorf("expected %v, got %v", stitch.ErrTemplateNotFound, err)
	}

	broken := stitch.ResolverChain{erroringResolver{err: errBackend}, second}
	if _, err := broken.ResolveTemplate(ctx, "text"); !errors.Is(err, errBackend) {
		t.Errorf("expected the chain to stop at %v, got %v", errBackend, err)
	}
}

func TestFallbackResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := &stitch.TemplateRegistry{}
	registry.MustRegister("hero", literal("hero"))
	registry.MustRegister("default", literal("default"))

	fallback := stitch.FallbackResolver{Resolver: registry, ID: "default"}

	tests := map[string]string{
		"hero":    "hero",
		"gallery": "default",
		"":        "default",
	}
	for id, expected := range tests {
		tmpl, err := fallback.ResolveTemplate(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error resolving %q: %s", id, err)
		}
		if output := executeToString(t, tmpl, nil); output != expected {
			t.Errorf("resolving %q: expected %q, got %q", id, expected, output)
		}
	}

	missing := stitch.FallbackResolver{Resolver: registry, ID: "missing"}
	if _, err := missing.ResolveTemplate(ctx, "gallery"); !errors.Is(err, stitch.ErrTemplateNotFound) {
		t.Errorf("expected %v when the fallback is missing too, got %v", stitch.ErrTemplateNotFound, err)
	}

	errBackend := errors.New("backend unavailable")
	broken := stitch.FallbackResolver{Resolver: erroringResolver{err: errBackend}, ID: "default"}
	if _, err := broken.ResolveTemplate(ctx, "hero"); !errors.Is(err, errBackend) {
		t.Errorf("expected %v to be returned without falling back, got %v", errBackend, err)
	}
}
