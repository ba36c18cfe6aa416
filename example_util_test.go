package stitch_test

import (
	"context"
	"testing/fstest"

	"impractical.co/stitch"
)

type MySite struct {
	// anonymously embedding a *CachedSite makes MySite a Site implementation
	*stitch.CachedSite

	// a configurable title for our site
	Title string
}

// HomePage is the page our modules live on.
type HomePage struct {
	Title string
}

func (HomePage) IntendedTemplate(_ context.Context) string {
	return "home"
}

func (HomePage) Parent(_ context.Context) stitch.Module {
	return nil
}

// Block is a module with a heading and some text.
type Block struct {
	Template string
	Heading  string
	Text     string
	Page     stitch.Module
}

func (b Block) IntendedTemplate(_ context.Context) string {
	return b.Template
}

func (b Block) Parent(_ context.Context) stitch.Module {
	return b.Page
}

// templateFS builds an in-memory template directory. Normally you'd use
// something like embed.FS or os.DirFS for this.
func templateFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, contents := range files {
		fsys[name] = &fstest.MapFile{
			Data: []byte(contents),
			Mode: 0o644,
		}
	}
	return fsys
}
