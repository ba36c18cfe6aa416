package store

import (
	"context"
	"errors"
	"html/template"
	"path/filepath"
	"testing"

	"impractical.co/stitch"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "stitch.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func putPages(t *testing.T, store *Store, pages ...Page) {
	t.Helper()
	for _, page := range pages {
		if err := store.PutPage(context.Background(), page); err != nil {
			t.Fatalf("put page %s: %v", page.ID, err)
		}
	}
}

func collect(t *testing.T, source stitch.OrderedModuleSource) []*Page {
	t.Helper()
	modules, err := stitch.Collect(context.Background(), source)
	if err != nil {
		t.Fatalf("collect modules: %v", err)
	}
	pages := make([]*Page, 0, len(modules))
	for _, module := range modules {
		page, ok := module.(*Page)
		if !ok {
			t.Fatalf("module is %T, want *Page", module)
		}
		pages = append(pages, page)
	}
	return pages
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestNewRequiresDB(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), nil); err == nil {
		t.Fatal("expected nil db error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stitch.sqlite3")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open store (attempt %d): %v", i+1, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	}
}

func TestPutGetPageRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store,
		Page{ID: "home", Template: "home", Title: "Home"},
		Page{
			ID:       "home/hero",
			ParentID: "home",
			Template: "hero",
			Num:      1,
			Content:  map[string]any{"heading": "Welcome"},
		},
	)

	got, err := store.Page(context.Background(), "home/hero")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if got.Template != "hero" {
		t.Fatalf("template = %q, want %q", got.Template, "hero")
	}
	if got.Field("heading") != "Welcome" {
		t.Fatalf("heading = %v, want %q", got.Field("heading"), "Welcome")
	}
	parent, ok := got.Parent(context.Background()).(*Page)
	if !ok {
		t.Fatalf("parent is %T, want *Page", got.Parent(context.Background()))
	}
	if parent.ID != "home" {
		t.Fatalf("parent id = %q, want %q", parent.ID, "home")
	}
	if parent.Field("title") != "Home" {
		t.Fatalf("parent title = %v, want %q", parent.Field("title"), "Home")
	}
	if parent.Parent(context.Background()) != nil {
		t.Fatalf("expected top-level page to have a nil parent")
	}
}

func TestPutPageReplaces(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store,
		Page{ID: "home", Template: "home", Title: "Home"},
		Page{ID: "home", Template: "landing", Title: "Landing"},
	)

	got, err := store.Page(context.Background(), "home")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if got.Template != "landing" || got.Title != "Landing" {
		t.Fatalf("page = %+v, want the replaced page", got)
	}
}

func TestPutPageRequiresID(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.PutPage(context.Background(), Page{Template: "home"}); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestModulesOrder(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store,
		Page{ID: "home", Template: "home", Title: "Home"},
		Page{ID: "home/c", ParentID: "home", Template: "text", Num: 2},
		Page{ID: "home/a", ParentID: "home", Template: "hero", Num: 1},
		Page{ID: "home/b", ParentID: "home", Template: "text", Num: 2},
		Page{ID: "about", Template: "home", Title: "About"},
		Page{ID: "about/a", ParentID: "about", Template: "hero", Num: 0},
	)

	modules, err := store.Modules(context.Background(), "home")
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	if modules.Page().ID != "home" {
		t.Fatalf("collection page = %q, want %q", modules.Page().ID, "home")
	}
	pages := collect(t, modules)
	want := []string{"home/a", "home/b", "home/c"}
	if len(pages) != len(want) {
		t.Fatalf("got %d modules, want %d", len(pages), len(want))
	}
	for i, page := range pages {
		if page.ID != want[i] {
			t.Errorf("module %d = %q, want %q", i, page.ID, want[i])
		}
		parent, ok := page.Parent(context.Background()).(*Page)
		if !ok || parent.ID != "home" {
			t.Errorf("module %d parent = %v, want home", i, page.Parent(context.Background()))
		}
	}

	// collections are re-read each time they're iterated
	putPages(t, store, Page{ID: "home/d", ParentID: "home", Template: "text", Num: 3})
	if got := len(collect(t, modules)); got != 4 {
		t.Fatalf("got %d modules after adding one, want 4", got)
	}
}

func TestModulesOfEmptyPage(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store, Page{ID: "home", Template: "home"})

	modules, err := store.Modules(context.Background(), "home")
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	if got := len(collect(t, modules)); got != 0 {
		t.Fatalf("got %d modules, want 0", got)
	}
}

func TestPageNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.Page(context.Background(), "missing"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("get page error = %v, want %v", err, ErrPageNotFound)
	}
	if _, err := store.Modules(context.Background(), "missing"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("list modules error = %v, want %v", err, ErrPageNotFound)
	}
	if err := store.DeletePage(context.Background(), "missing"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("delete page error = %v, want %v", err, ErrPageNotFound)
	}
}

func TestPutPageRequiresExistingParent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.PutPage(context.Background(), Page{ID: "orphan", ParentID: "missing", Template: "text"})
	if err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestDeletePageRemovesModules(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store,
		Page{ID: "home", Template: "home"},
		Page{ID: "home/hero", ParentID: "home", Template: "hero"},
	)

	if err := store.DeletePage(context.Background(), "home"); err != nil {
		t.Fatalf("delete page: %v", err)
	}
	if _, err := store.Page(context.Background(), "home/hero"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("get module error = %v, want %v", err, ErrPageNotFound)
	}
}

func TestRenderStoredModules(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store,
		Page{ID: "home", Template: "home", Title: "Home"},
		Page{ID: "home/text", ParentID: "home", Template: "text", Num: 2, Content: map[string]any{"body": "Thanks for *visiting*."}},
		Page{ID: "home/hero", ParentID: "home", Template: "hero", Num: 1, Content: map[string]any{"heading": "Welcome"}},
	)

	funcs := stitch.ContentFuncs()
	registry := &stitch.TemplateRegistry{}
	registry.MustRegister("hero", template.Must(template.New("hero").Funcs(funcs).Parse(
		`<h1>{{ field .Module "heading" }}</h1><p>{{ .Site }}: {{ field .Page "title" }}</p>`,
	)))
	registry.MustRegister("text", template.Must(template.New("text").Funcs(funcs).Parse(
		`{{ markdown (field .Module "body") }}`,
	)))

	modules, err := store.Modules(context.Background(), "home")
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	renderer := stitch.NewRenderer("Example", registry)
	output, err := renderer.RenderToString(context.Background(), modules)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "<h1>Welcome</h1><p>Example: Home</p><p>Thanks for <em>visiting</em>.</p>\n"
	if output != want {
		t.Fatalf("output = %q, want %q", output, want)
	}
}

func TestPageParentCycle(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putPages(t, store,
		Page{ID: "a", Template: "home"},
		Page{ID: "b", ParentID: "a", Template: "home"},
		// closes the loop: a -> b -> a
		Page{ID: "a", ParentID: "b", Template: "home"},
	)

	if _, err := store.Page(context.Background(), "a"); !errors.Is(err, ErrParentDepthExceeded) {
		t.Fatalf("get page error = %v, want %v", err, ErrParentDepthExceeded)
	}
	if _, err := store.Modules(context.Background(), "b"); !errors.Is(err, ErrParentDepthExceeded) {
		t.Fatalf("list modules error = %v, want %v", err, ErrParentDepthExceeded)
	}
}
