package export

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"grantreview/internal/logging"
	"grantreview/internal/review"
)

// PDFOptions configures the headless browser used for PDF rendering.
type PDFOptions struct {
	// ExecPath overrides Chrome discovery.
	ExecPath string
	Timeout  time.Duration
}

// PDF renders the report's HTML page with headless Chrome and prints it to
// US Letter PDF.
func PDF(ctx context.Context, r *review.FinalReport, opts PDFOptions) ([]byte, error) {
	html, err := HTML(r)
	if err != nil {
		return nil, err
	}
	return PrintHTML(ctx, html, opts)
}

// PrintHTML prints an HTML document to PDF.
func PrintHTML(ctx context.Context, html string, opts PDFOptions) ([]byte, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	logging.New("export").Debugw("pdf rendered", "bytes", len(pdf))
	return pdf, nil
}
