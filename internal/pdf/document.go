package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-layer-service/internal/domain"
)

var disableConfigDir sync.Once

// Provider opens PDFs with pdfcpu and rasterizes them with MuPDF. It
// implements domain.PageModelProvider.
type Provider struct {
	logger domain.Logger
}

// NewProvider creates a PDF page model provider.
func NewProvider(logger domain.Logger) *Provider {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Provider{logger: logger}
}

// Open reads the PDF at path. A missing file is domain.ErrSourceNotFound;
// bytes pdfcpu cannot read are domain.ErrUnsupportedFormat.
func (p *Provider) Open(ctx context.Context, path string) (domain.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("read source: %w", err)
	}
	return p.OpenBytes(ctx, data)
}

// OpenBytes parses an in-memory PDF.
func (p *Provider) OpenBytes(ctx context.Context, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pctx, err := readContext(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err)
	}
	if pctx.PageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrUnsupportedFormat)
	}
	return &Document{
		logger: p.logger,
		data:   data,
		ctx:    pctx,
		pages:  make(map[int]*pageModel),
	}, nil
}

func readContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
}

// Document is an opened source. The parsed object graph is shared by the
// extraction methods under a mutex; every render re-reads the bytes into a
// context of its own.
type Document struct {
	logger domain.Logger
	data   []byte

	mu    sync.Mutex
	ctx   *model.Context
	pages map[int]*pageModel
}

// pageModel is the traced content of one page.
type pageModel struct {
	geometry domain.PageGeometry
	content  []byte
	ops      []Op
	prims    []traced
}

func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

func (d *Document) checkIndex(pageIndex int) error {
	if pageIndex < 0 || pageIndex >= d.ctx.PageCount {
		return fmt.Errorf("page index %d out of range (%d pages)", pageIndex, d.ctx.PageCount)
	}
	return nil
}

// page traces a page once and caches the result.
func (d *Document) page(pageIndex int) (*pageModel, error) {
	if err := d.checkIndex(pageIndex); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if pm, ok := d.pages[pageIndex]; ok {
		return pm, nil
	}
	pm, err := loadPage(d.ctx, pageIndex+1)
	if err != nil {
		return nil, err
	}
	d.pages[pageIndex] = pm
	return pm, nil
}

func loadPage(ctx *model.Context, pageNr int) (*pageModel, error) {
	pageDict, _, inh, err := ctx.PageDict(pageNr, true)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNr, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d: missing page dictionary", pageNr)
	}
	obj := objects{ctx: ctx}

	geometry := pageGeometry(obj, pageDict, inh)

	content, err := pageContent(obj, pageDict)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNr, err)
	}

	resources := obj.dict(obj.entry(pageDict, "Resources"))
	if inh != nil && inh.Resources != nil {
		resources = inh.Resources
	}

	ops := Lex(content)
	prims := trace(ops, newPageResources(obj, resources), *geometry.MediaBox)
	return &pageModel{geometry: geometry, content: content, ops: ops, prims: prims}, nil
}

// pageContent concatenates the page's content streams.
func pageContent(obj objects, pageDict types.Dict) ([]byte, error) {
	contents, ok := pageDict.Find("Contents")
	if !ok {
		return nil, nil
	}
	var refs []types.Object
	if arr := obj.array(contents); arr != nil {
		refs = arr
	} else {
		refs = []types.Object{contents}
	}

	var buf bytes.Buffer
	for i, ref := range refs {
		data, _, ok := obj.stream(ref)
		if !ok {
			return nil, fmt.Errorf("content stream %d unreadable", i)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (d *Document) PageGeometry(pageIndex int) (domain.PageGeometry, error) {
	pm, err := d.page(pageIndex)
	if err != nil {
		return domain.PageGeometry{}, err
	}
	return pm.geometry, nil
}

func (d *Document) Primitives(pageIndex int) ([]domain.RawPrimitive, error) {
	pm, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}
	raws := make([]domain.RawPrimitive, len(pm.prims))
	for i, p := range pm.prims {
		raws[i] = p.raw
	}
	return raws, nil
}

// Info reads document metadata from the catalog and info dictionary (pdfcpu)
// and the outline (MuPDF).
func (d *Document) Info(ctx context.Context) (domain.DocumentInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.DocumentInfo{}, err
	}
	d.mu.Lock()
	info, err := catalogInfo(d.ctx)
	d.mu.Unlock()
	if err != nil {
		return info, fmt.Errorf("read catalog: %w", err)
	}

	toc, err := outline(d.data)
	if err != nil {
		d.logger.Warn("Failed to read outline", "error", err)
		return info, nil
	}
	info.TOC = toc
	return info, nil
}

// RenderPage rasterizes the unmodified page, annotations included.
func (d *Document) RenderPage(ctx context.Context, pageIndex int, scale float64) (*image.RGBA, error) {
	if err := d.checkIndex(pageIndex); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rasterize(d.data, pageIndex, scale)
}

// RenderRange rasterizes a copy of the page that keeps only the primitives
// whose sequence ids fall in keep, with annotations removed, on a transparent
// background.
func (d *Document) RenderRange(ctx context.Context, pageIndex int, keep domain.IDRange, scale float64) (*image.RGBA, error) {
	pm, err := d.page(pageIndex)
	if err != nil {
		return nil, err
	}
	content := rebuild(pm.content, pm.ops, pm.prims, keep)

	white, err := d.renderVariant(ctx, pageIndex, content, scale)
	if err != nil {
		return nil, err
	}
	black, err := d.renderVariant(ctx, pageIndex, append(underlay(*pm.geometry.MediaBox), content...), scale)
	if err != nil {
		return nil, err
	}
	return matte(white, black)
}

// renderVariant writes a disposable copy of the document whose page carries
// content as its only content stream, and rasterizes that page.
func (d *Document) renderVariant(ctx context.Context, pageIndex int, content []byte, scale float64) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pctx, err := readContext(d.data)
	if err != nil {
		return nil, fmt.Errorf("open copy: %w", err)
	}
	pageDict, _, _, err := pctx.PageDict(pageIndex+1, false)
	if err != nil {
		return nil, fmt.Errorf("copy page %d: %w", pageIndex+1, err)
	}

	sd, err := pctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, fmt.Errorf("new content stream: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encode content stream: %w", err)
	}
	ref, err := pctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("register content stream: %w", err)
	}
	pageDict.Update("Contents", *ref)
	pageDict.Delete("Annots")

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("write copy: %w", err)
	}
	return rasterize(buf.Bytes(), pageIndex, scale)
}

// Close releases the parsed document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = nil
	d.pages = nil
	return nil
}
