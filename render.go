package stitch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oxtoacart/bpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "impractical.co/stitch"

	defaultBufferPoolSize = 64
)

// RenderData is the data that is passed to a Module's template when
// rendering it. It's built fresh for every Module.
type RenderData[SiteType any] struct {
	// Site is the site handle the Renderer was built with. It can be
	// used to avoid passing global configuration options to every single
	// Module.
	Site SiteType

	// Page is the page containing the Module, as returned by the
	// Module's Parent method. It may be nil.
	Page Module

	// Module is the Module being rendered.
	Module Module
}

// TemplateResolutionError is returned when the template a Module asks for
// doesn't exist, or the Module doesn't ask for one. It always wraps
// ErrTemplateNotFound or ErrNoTemplateID.
type TemplateResolutionError struct {
	// TemplateID is the template the Module asked for.
	TemplateID string

	// Index is the Module's position in the source.
	Index int

	// Module is the Module that couldn't be rendered.
	Module Module

	// Err is the error the TemplateResolver returned.
	Err error
}

func (e *TemplateResolutionError) Error() string {
	return fmt.Sprintf("error resolving template %q for module %d (%T): %v", e.TemplateID, e.Index, e.Module, e.Err)
}

func (e *TemplateResolutionError) Unwrap() error {
	return e.Err
}

// RenderError is returned when a Module's template exists but can't be
// used: it fails to parse or load, or it fails to execute.
type RenderError struct {
	// TemplateID is the template the Module was being rendered with.
	TemplateID string

	// Index is the Module's position in the source.
	Index int

	// Module is the Module that couldn't be rendered.
	Module Module

	// Err is the error the Template returned.
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("error executing template %q for module %d (%T): %v", e.TemplateID, e.Index, e.Module, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer turns an OrderedModuleSource into a single HTML fragment. It
// resolves each Module's intended template, executes it with a RenderData,
// and concatenates the results in source order.
//
// A Renderer can safely be used by multiple goroutines, as long as its
// TemplateResolver and the Templates it returns can.
type Renderer[SiteType any] struct {
	site        SiteType
	templates   TemplateResolver
	concurrency int
	buffers     *bpool.BufferPool
	tracer      trace.Tracer
}

type rendererConfig struct {
	concurrency    int
	bufferPoolSize int
	tracerProvider trace.TracerProvider
}

// RendererOption configures a Renderer.
type RendererOption func(*rendererConfig)

// WithConcurrency renders up to n Modules at the same time. Output order
// doesn't change; every Module's output is still placed according to its
// position in the source. The TemplateResolver and the Templates it returns
// must be safe for concurrent use. Values below 2 render sequentially, which
// is the default.
func WithConcurrency(n int) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.concurrency = n
	}
}

// WithBufferPoolSize sets how many idle output buffers the Renderer keeps
// around for reuse.
func WithBufferPoolSize(size int) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.bufferPoolSize = size
	}
}

// WithTracerProvider sets the OpenTelemetry TracerProvider spans are
// recorded with. The global TracerProvider is used by default.
func WithTracerProvider(provider trace.TracerProvider) RendererOption {
	return func(cfg *rendererConfig) {
		cfg.tracerProvider = provider
	}
}

// NewRenderer returns a Renderer that makes site available to every template
// as .Site, and resolves templates using templates.
func NewRenderer[SiteType any](site SiteType, templates TemplateResolver, opts ...RendererOption) *Renderer[SiteType] {
	cfg := rendererConfig{
		concurrency:    1,
		bufferPoolSize: defaultBufferPoolSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.bufferPoolSize < 1 {
		cfg.bufferPoolSize = 1
	}
	return &Renderer[SiteType]{
		site:        site,
		templates:   templates,
		concurrency: cfg.concurrency,
		buffers:     bpool.NewBufferPool(cfg.bufferPoolSize),
		tracer:      cfg.tracerProvider.Tracer(tracerName),
	}
}

// RenderToString renders every Module in modules and returns the
// concatenated output. An empty source renders to the empty string.
//
// If any Module fails to render, the error is returned along with an empty
// string; the output of the Modules rendered before it is discarded. A
// Module whose template doesn't exist produces a *TemplateResolutionError,
// and one whose template fails to parse or execute produces a *RenderError.
func (r *Renderer[SiteType]) RenderToString(ctx context.Context, modules OrderedModuleSource) (string, error) {
	buf := r.buffers.Get()
	defer r.buffers.Put(buf)
	err := r.render(ctx, buf, modules)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render renders every Module in modules and writes the concatenated output
// to out. Nothing is written unless every Module rendered successfully.
func (r *Renderer[SiteType]) Render(ctx context.Context, out io.Writer, modules OrderedModuleSource) error {
	buf := r.buffers.Get()
	defer r.buffers.Put(buf)
	err := r.render(ctx, buf, modules)
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(out)
	if err != nil {
		return fmt.Errorf("error writing rendered modules: %w", err)
	}
	return nil
}

func (r *Renderer[SiteType]) render(ctx context.Context, buf *bytes.Buffer, modules OrderedModuleSource) (err error) {
	ctx, span := r.tracer.Start(ctx, "stitch.Render")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger(ctx).ErrorContext(ctx, "error rendering modules", "error", err)
		}
		span.End()
	}()

	var rendered int
	if r.concurrency > 1 {
		rendered, err = r.renderParallel(ctx, buf, modules)
	} else {
		rendered, err = r.renderSequential(ctx, buf, modules)
	}
	span.SetAttributes(attribute.Int("stitch.modules", rendered))
	return err
}

func (r *Renderer[SiteType]) renderSequential(ctx context.Context, buf *bytes.Buffer, modules OrderedModuleSource) (int, error) {
	var index int
	for module, err := range modules.Modules(ctx) {
		if err != nil {
			return index, fmt.Errorf("error listing modules: %w", err)
		}
		if ctx.Err() != nil {
			return index, fmt.Errorf("error rendering module %d: %w", index, context.Cause(ctx))
		}
		err = r.renderModule(ctx, buf, index, module)
		if err != nil {
			return index, err
		}
		index++
	}
	return index, nil
}

// renderParallel renders every Module into its own buffer, then copies the
// buffers into buf in source order. The first failure stops Modules that
// haven't started yet; of the errors recorded, the one for the Module
// earliest in the source is returned.
func (r *Renderer[SiteType]) renderParallel(ctx context.Context, buf *bytes.Buffer, modules OrderedModuleSource) (int, error) {
	list, err := Collect(ctx, modules)
	if err != nil {
		return 0, err
	}
	results := make([]*bytes.Buffer, len(list))
	errs := make([]error, len(list))
	defer func() {
		for _, result := range results {
			if result != nil {
				r.buffers.Put(result)
			}
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for pos, module := range list {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			result := r.buffers.Get()
			results[pos] = result
			errs[pos] = r.renderModule(groupCtx, result, pos, module)
			return errs[pos]
		})
	}
	// every error is also recorded in errs, which is checked in order
	_ = group.Wait()

	for _, err := range errs {
		if err != nil {
			return len(list), err
		}
	}
	for pos, result := range results {
		if result == nil {
			// only happens if ctx was canceled before the Module started
			return len(list), fmt.Errorf("error rendering module %d: %w", pos, context.Cause(ctx))
		}
		_, _ = buf.Write(result.Bytes())
	}
	return len(list), nil
}

func (r *Renderer[SiteType]) renderModule(ctx context.Context, out io.Writer, index int, module Module) error {
	id := module.IntendedTemplate(ctx)
	ctx, span := r.tracer.Start(ctx, "stitch.RenderModule", trace.WithAttributes(
		attribute.String("stitch.template", id),
		attribute.Int("stitch.index", index),
	))
	defer span.End()

	tmpl, err := r.templates.ResolveTemplate(ctx, id)
	if err == nil && tmpl == nil {
		err = fmt.Errorf("%w: resolver returned no template for %q", ErrTemplateNotFound, id)
	}
	if err != nil && (errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrNoTemplateID)) {
		resErr := &TemplateResolutionError{
			TemplateID: id,
			Index:      index,
			Module:     module,
			Err:        err,
		}
		span.RecordError(resErr)
		span.SetStatus(codes.Error, "template resolution failed")
		return resErr
	}
	if err != nil {
		// the template exists but couldn't be loaded, usually a syntax error
		renderErr := &RenderError{
			TemplateID: id,
			Index:      index,
			Module:     module,
			Err:        err,
		}
		span.RecordError(renderErr)
		span.SetStatus(codes.Error, "template loading failed")
		return renderErr
	}

	data := RenderData[SiteType]{
		Site:   r.site,
		Page:   module.Parent(ctx),
		Module: module,
	}
	err = tmpl.Execute(out, data)
	if err != nil {
		renderErr := &RenderError{
			TemplateID: id,
			Index:      index,
			Module:     module,
			Err:        err,
		}
		span.RecordError(renderErr)
		span.SetStatus(codes.Error, "template execution failed")
		return renderErr
	}
	logger(ctx).DebugContext(ctx, "rendered module", "template", id, "index", index)
	return nil
}
