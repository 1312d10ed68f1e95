// Package render 负责把草稿版式渲染为图片与 PDF 字节流。
package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 @ 96 DPI 的页面像素尺寸，与版式模板保持一致。
const (
	pageWidthPx  = 794
	pageHeightPx = 1122

	jpegQuality = 95
)

// RodRenderer 用无头浏览器渲染版式 HTML。每次渲染独立启动并清理浏览器，
// 相互隔离：一次失败不影响其他导出。
type RodRenderer struct {
	pageTimeout time.Duration
}

// NewRodRenderer 构造 RodRenderer。
func NewRodRenderer() *RodRenderer {
	return &RodRenderer{pageTimeout: 30 * time.Second}
}

// RenderJPEG 渲染为 JPEG。
func (r *RodRenderer) RenderJPEG(ctx context.Context, html string) ([]byte, error) {
	return r.screenshot(ctx, html, proto.PageCaptureScreenshotFormatJpeg)
}

// RenderPNG 渲染为 PNG。
func (r *RodRenderer) RenderPNG(ctx context.Context, html string) ([]byte, error) {
	return r.screenshot(ctx, html, proto.PageCaptureScreenshotFormatPng)
}

// RenderPDF 渲染为固定 A4 纵向的单页 PDF。
func (r *RodRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	var data []byte
	err := r.withPage(ctx, html, func(page *rod.Page) error {
		reader, err := page.PDF(&proto.PagePrintToPDF{
			PrintBackground:   true,
			PaperWidth:        float64Ptr(8.27), // A4 英寸
			PaperHeight:       float64Ptr(11.69),
			MarginTop:         float64Ptr(0),
			MarginBottom:      float64Ptr(0),
			MarginLeft:        float64Ptr(0),
			MarginRight:       float64Ptr(0),
			PreferCSSPageSize: true,
		})
		if err != nil {
			return fmt.Errorf("export pdf: %w", err)
		}
		defer func() {
			_ = reader.Close()
		}()

		data, err = io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("read pdf bytes: %w", err)
		}
		return nil
	})
	return data, err
}

// RenderSVG 渲染为矢量容器：PNG 栅格内嵌在 A4 尺寸的 SVG 中。
func (r *RodRenderer) RenderSVG(ctx context.Context, html string) ([]byte, error) {
	png, err := r.RenderPNG(ctx, html)
	if err != nil {
		return nil, err
	}
	return WrapRasterSVG(png), nil
}

// WrapRasterSVG 把 PNG 栅格包装为固定 A4 比例的 SVG 文档。
func WrapRasterSVG(png []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(png)
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d"><image width="%d" height="%d" xlink:href="data:image/png;base64,%s"/></svg>`,
		pageWidthPx, pageHeightPx, pageWidthPx, pageHeightPx, pageWidthPx, pageHeightPx, encoded,
	)
	return []byte(svg)
}

func (r *RodRenderer) screenshot(ctx context.Context, html string, format proto.PageCaptureScreenshotFormat) ([]byte, error) {
	var data []byte
	err := r.withPage(ctx, html, func(page *rod.Page) error {
		element, err := page.Timeout(5 * time.Second).Element("#a4-container")
		if err == nil {
			if shot, shotErr := element.Screenshot(format, jpegQuality); shotErr == nil {
				data = shot
				return nil
			}
		}

		req := &proto.PageCaptureScreenshot{Format: format}
		if format == proto.PageCaptureScreenshotFormatJpeg {
			req.Quality = intPtr(jpegQuality)
		}
		shot, err := page.Screenshot(true, req)
		if err != nil {
			return fmt.Errorf("page screenshot: %w", err)
		}
		data = shot
		return nil
	})
	return data, err
}

func (r *RodRenderer) withPage(ctx context.Context, html string, fn func(*rod.Page) error) error {
	launch := launcher.New().
		Headless(true).
		NoSandbox(true)

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(r.pageTimeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(r.pageTimeout)
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             pageWidthPx,
		Height:            pageHeightPx,
		DeviceScaleFactor: 2,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}

	return fn(page)
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
