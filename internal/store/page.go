package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"impractical.co/stitch"
)

var _ stitch.Module = &Page{}
var _ stitch.Fielder = &Page{}

// Page is a stored page. Pages whose parent is another page are that page's
// modules.
type Page struct {
	ID       string
	ParentID string
	Template string
	Title    string

	// Num orders a page among its siblings.
	Num int

	// Content holds the page's fields, available to templates through
	// Field.
	Content map[string]any

	parent *Page
}

// IntendedTemplate returns the template the page was stored with.
func (p *Page) IntendedTemplate(_ context.Context) string {
	return p.Template
}

// Parent returns the page's parent, or nil if it's a top-level page or its
// parent wasn't loaded.
func (p *Page) Parent(_ context.Context) stitch.Module {
	if p.parent == nil {
		return nil
	}
	return p.parent
}

// Field returns the content field called name. The page's title is
// available as "title" unless the content overrides it.
func (p *Page) Field(name string) any {
	if val, ok := p.Content[name]; ok {
		return val
	}
	if name == "title" {
		return p.Title
	}
	return nil
}

var _ stitch.OrderedModuleSource = &Collection{}

// Collection is the ordered set of modules belonging to one page. The
// modules are read from the database each time they're iterated.
type Collection struct {
	db   *sql.DB
	page *Page
}

// Page returns the page the modules belong to.
func (c *Collection) Page() *Page {
	return c.page
}

// Modules yields the page's modules in order. Each one has the page as its
// Parent.
func (c *Collection) Modules(ctx context.Context) iter.Seq2[stitch.Module, error] {
	return func(yield func(stitch.Module, error) bool) {
		rows, err := c.db.QueryContext(ctx,
			"SELECT "+pageColumns+" FROM pages WHERE parent_id = ? ORDER BY num, id",
			c.page.ID,
		)
		if err != nil {
			yield(nil, fmt.Errorf("list modules of %s: %w", c.page.ID, err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			module, err := scanPage(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scan module of %s: %w", c.page.ID, err))
				return
			}
			module.parent = c.page
			if !yield(module, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("list modules of %s: %w", c.page.ID, err))
		}
	}
}
