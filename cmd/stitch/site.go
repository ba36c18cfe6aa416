package main

import (
	"context"
	"html/template"
	"io/fs"

	"impractical.co/stitch"
	"impractical.co/stitch/internal/config"
)

type templateCache interface {
	stitch.Site
	stitch.TemplateCacher
}

// site is the handle templates see as .Site. The SiteInfo fields are
// promoted, so templates can use .Site.Title directly.
type site struct {
	templateCache
	config.SiteInfo
}

func (site) FuncMap(_ context.Context) template.FuncMap {
	return stitch.ContentFuncs()
}

// newSite builds the site, caching parsed templates without bound unless the
// configuration limits the cache. The returned func releases the cache.
func newSite(cfg config.Config, info config.SiteInfo, templates fs.FS) (site, func(), error) {
	if cfg.TemplateCacheSize < 1 {
		return site{
			templateCache: stitch.NewCachedSite(templates),
			SiteInfo:      info,
		}, func() {}, nil
	}
	bounded, err := stitch.NewBoundedCachedSite(templates, cfg.TemplateCacheSize)
	if err != nil {
		return site{}, nil, err
	}
	return site{
		templateCache: bounded,
		SiteInfo:      info,
	}, bounded.Close, nil
}

// newResolver resolves templates from the site's template directory,
// falling back to cfg.FallbackTemplate when one is configured.
func newResolver(cfg config.Config, s site) stitch.TemplateResolver {
	var resolver stitch.TemplateResolver = stitch.NewFSTemplates(s,
		stitch.WithTemplatePattern(cfg.TemplatePattern),
		stitch.WithSnippets(cfg.Snippets...),
	)
	if cfg.FallbackTemplate != "" {
		resolver = stitch.FallbackResolver{
			Resolver: resolver,
			ID:       cfg.FallbackTemplate,
		}
	}
	return resolver
}
