package render

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// settleScript menunggu font dan semua gambar (QR, tanda tangan) selesai dimuat
const settleScript = `(async () => {
  await document.fonts.ready;
  await Promise.all(Array.from(document.images).map(img =>
    img.complete ? Promise.resolve() : new Promise(done => { img.onload = done; img.onerror = done; })));
  return true;
})()`

type ChromeOptions struct {
	ExecPath    string
	SettleDelay time.Duration
}

// ChromeEngine render markup lewat headless Chrome. Satu browser, satu tab per render.
type ChromeEngine struct {
	settle        time.Duration
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func NewChromeEngine(opts ChromeOptions) (*ChromeEngine, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("font-render-hinting", "none"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// start browser sekarang supaya error muncul saat startup, bukan saat render pertama
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: failed to start chrome: %w", ErrEngine, err)
	}

	log.Info().Msg("Headless chrome started")

	return &ChromeEngine{
		settle:        opts.SettleDelay,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (e *ChromeEngine) Render(ctx context.Context, doc Document, format model.ArtifactFormat) ([]byte, error) {
	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	scale := doc.Scale
	if format == model.FormatPDF || scale <= 0 {
		scale = 1
	}

	var settled bool
	actions := []chromedp.Action{
		chromedp.EmulateViewport(doc.Page.WidthPixels(), doc.Page.HeightPixels(), chromedp.EmulateScale(scale)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc.Markup).Do(ctx)
		}),
		chromedp.Evaluate(settleScript, &settled, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	}
	if e.settle > 0 {
		actions = append(actions, chromedp.Sleep(e.settle))
	}

	var out []byte
	switch format {
	case model.FormatPDF:
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(doc.Page.WidthInches()).
				WithPaperHeight(doc.Page.HeightInches()).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			out = buf
			return err
		}))
	case model.FormatImage:
		// quality 100 menghasilkan PNG
		actions = append(actions, chromedp.FullScreenshot(&out, 100))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("%w: chrome %s export: %w", ErrEngine, format, err)
	}
	return out, nil
}

// Close menghentikan browser
func (e *ChromeEngine) Close() {
	e.browserCancel()
	e.allocCancel()
}
