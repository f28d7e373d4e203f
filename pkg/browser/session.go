// Package browser drives a single Chromium page through go-rod with
// accessibility-style locators and bounded waits.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Options configures how the browser is launched
type Options struct {
	Bin       string `json:"bin,omitempty"` // Chromium binary, empty means auto-detect
	Headless  bool   `json:"headless"`
	NoSandbox bool   `json:"no_sandbox"`
}

// DefaultOptions launches a headless browser with the local Chromium
func DefaultOptions() Options {
	return Options{Headless: true}
}

// Session holds one browser and the single page the verifiers drive
type Session struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	interval  time.Duration
	CreatedAt time.Time
}

// Launch starts a browser and opens a blank page
func Launch(opts Options) (*Session, error) {
	l := launcher.New()

	// Use CHROME_BIN if set (Docker environment)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	} else if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		l = l.Bin(chromeBin)
	}

	l = l.Headless(opts.Headless)
	if opts.NoSandbox {
		l = l.Set("no-sandbox")
	}
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{
		launcher:  l,
		browser:   browser,
		page:      page,
		interval:  100 * time.Millisecond,
		CreatedAt: time.Now(),
	}, nil
}

// Close shuts the browser down and removes its profile directory
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	s.browser = nil
	return err
}

// OnConsole calls fn with the text of every console message the page emits
func (s *Session) OnConsole(fn func(text string)) {
	go s.page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		fn(consoleText(e.Args))
	})()
}

func consoleText(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg.Description != "" {
			parts = append(parts, arg.Description)
			continue
		}
		parts = append(parts, arg.Value.String())
	}
	return strings.Join(parts, " ")
}

// Navigate loads url and waits for the load event
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return wrapWait(ctx, "navigate to "+url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return wrapWait(ctx, "load "+url, err)
	}
	return nil
}

// URL returns the address of the current document
func (s *Session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Screenshot writes a PNG of the viewport to path, creating parent dirs
func (s *Session) Screenshot(ctx context.Context, path string) error {
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}
