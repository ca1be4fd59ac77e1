package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 in inches.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.4
)

// Printer 使用 go-rod 启动无头 Chromium 将 HTML 打印为 PDF。
// 每次调用启动独立浏览器，避免任务之间共享页面状态。
type Printer struct {
	// Bin overrides the Chromium binary; empty means launcher lookup.
	Bin     string
	Timeout time.Duration
}

func NewPrinter() *Printer {
	return &Printer{Timeout: 60 * time.Second}
}

// Print renders htmlContent and returns the PDF bytes. ctx cancellation aborts the browser.
func (p *Printer) Print(ctx context.Context, htmlContent string) (_ []byte, err error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	if p.Bin != "" {
		launch = launch.Bin(p.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}
	defer launch.Cleanup()

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Timeout(timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Timeout(timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      ptr(paperWidth),
		PaperHeight:     ptr(paperHeight),
		MarginTop:       ptr(margin),
		MarginBottom:    ptr(margin),
		MarginLeft:      ptr(margin),
		MarginRight:     ptr(margin),
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func ptr[T any](v T) *T { return &v }
