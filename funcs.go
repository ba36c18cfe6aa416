package stitch

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	// policies are safe for concurrent use once they're configured
	contentPolicy = bluemonday.UGCPolicy()

	markdownConverter = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

// ContentFuncs returns template functions for rendering Module content. Sites
// can return it, or merge it into, the output of their FuncMap method.
//
//   - markdown converts a GitHub-flavored Markdown string to HTML, stripping
//     anything not safe for user-generated content.
//   - sanitize strips anything not safe for user-generated content from an
//     HTML string.
//   - field returns the named content field of a Module that implements
//     Fielder, and nil for anything else, including a nil .Page.
func ContentFuncs() template.FuncMap {
	return template.FuncMap{
		"markdown": renderMarkdown,
		"sanitize": sanitizeHTML,
		"field":    moduleField,
	}
}

func renderMarkdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	err := markdownConverter.Convert([]byte(source), &buf)
	if err != nil {
		return "", fmt.Errorf("error converting markdown: %w", err)
	}
	return template.HTML(contentPolicy.SanitizeBytes(buf.Bytes())), nil // #nosec G203
}

func sanitizeHTML(source string) template.HTML {
	return template.HTML(contentPolicy.Sanitize(source)) // #nosec G203
}

func moduleField(module Module, name string) any {
	fielder, ok := module.(Fielder)
	if !ok {
		return nil
	}
	return fielder.Field(name)
}
