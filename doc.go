// Package stitch renders ordered collections of content modules into a
// single HTML fragment.
//
// stitch is organized around Modules, Sites, and Templates. A Module is a
// piece of content that gets rendered as one fragment of a composite page: a
// hero banner, a block of text, a gallery. Each Module names the template it
// wants to be rendered with through IntendedTemplate, and knows the page that
// contains it through Parent.
//
// A Site is the singleton for the server. It's handed to the Renderer once,
// when the Renderer is built, and made available to every template at render
// time as .Site, so it can hold configuration data used across all pages.
// Sites that also expose their templates as an fs.FS can be used with
// FSTemplates to resolve template identifiers to files.
//
// To render a collection, pass anything implementing OrderedModuleSource to
// Renderer.RenderToString or Renderer.Render. Every Module is rendered with a
// fresh RenderData, exposing the Module's parent as .Page, the Module itself
// as .Module, and the Site as .Site. The results are concatenated in the
// order the source yielded them.
//
// Rendering is all or nothing. The first template that can't be resolved or
// executed aborts the whole render, and none of the output produced so far is
// returned.
package stitch
