package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// PDFConverter turns rendered HTML into PDF bytes. Chrome is the primary
// path, wkhtmltopdf the fallback when no Chrome is around.
type PDFConverter struct {
	wkhtmltopdfBin string
	log            *zap.Logger
}

func NewPDFConverter(wkhtmltopdfBin string, log *zap.Logger) *PDFConverter {
	if wkhtmltopdfBin == "" {
		wkhtmltopdfBin = "wkhtmltopdf"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFConverter{wkhtmltopdfBin: wkhtmltopdfBin, log: log}
}

// Convert tries Chrome first, then wkhtmltopdf. ok=false with a nil error
// means neither converter is available and the caller should keep the HTML.
func (c *PDFConverter) Convert(ctx context.Context, html []byte) (pdf []byte, ok bool, err error) {
	pdf, err = c.convertChrome(ctx, html)
	if err == nil {
		return pdf, true, nil
	}
	c.log.Debug("chrome pdf conversion unavailable", zap.Error(err))

	pdf, err = c.convertWkhtmltopdf(ctx, html)
	if err == nil {
		return pdf, true, nil
	}
	c.log.Warn("no pdf converter available, keeping html", zap.Error(err))
	return nil, false, nil
}

func (c *PDFConverter) convertChrome(ctx context.Context, html []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "autocv-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "doc.html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if bin := os.Getenv("CHROME_PATH"); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	runCtx, runCancel := context.WithTimeout(browserCtx, 45*time.Second)
	defer runCancel()

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 portrait.
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	return pdf, nil
}

func (c *PDFConverter) convertWkhtmltopdf(ctx context.Context, html []byte) ([]byte, error) {
	if _, err := exec.LookPath(c.wkhtmltopdfBin); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf not found: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "autocv-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "doc.html")
	pdfPath := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	cmd := exec.CommandContext(runCtx, c.wkhtmltopdfBin, "--quiet", "--page-size", "A4", htmlPath, pdfPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf: %w: %s", err, out)
	}
	return os.ReadFile(pdfPath)
}
