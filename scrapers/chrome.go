package scrapers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ChromeBrowser launches headless Chrome sessions through chromedp.
type ChromeBrowser struct {
	headless bool
	logger   zerolog.Logger
}

// NewChromeBrowser creates a browser launcher
func NewChromeBrowser(config *ScraperConfig, logger zerolog.Logger) *ChromeBrowser {
	return &ChromeBrowser{
		headless: config.Headless,
		logger:   logger.With().Str("component", "chrome").Logger(),
	}
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      zerolog.Logger
	closeOnce   sync.Once
	closeErr    error
}

// Open starts Chrome and returns a session that lives until Close or until ctx ends.
func (b *ChromeBrowser) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)

	if b.headless {
		b.logger.Debug().Msg("running in headless mode")
	} else {
		b.logger.Debug().Msg("running in visible mode")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			b.logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			b.logger.Warn().Msgf(format, args...)
		}),
	)

	// An empty Run forces the browser process to start so launch errors show up here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &chromeSession{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      b.logger,
	}

	// Consent pop-ups and alerts would otherwise block every later action.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			s.logger.Debug().Str("message", e.Message).Msg("accepting dialog")
			go chromedp.Run(tabCtx, page.HandleJavaScriptDialog(true))
		}
	})

	return s, nil
}

func (s *chromeSession) Navigate(url string) error {
	s.logger.Debug().Str("url", url).Msg("navigating")
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

func (s *chromeSession) Evaluate(script string, res any) error {
	return chromedp.Run(s.ctx, chromedp.Evaluate(script, res))
}

// FindAll snapshots the rendered document and walks it with goquery.
// Image references come back absolute, resolved against the document base.
func (s *chromeSession) FindAll(tag string) ([]Element, error) {
	var html, baseURI string
	err := chromedp.Run(s.ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(`document.baseURI`, &baseURI),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return parseElements(html, baseURI, tag)
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// refAttrs hold references the page may write relative to its own URL.
var refAttrs = []string{"src", "data-src"}

// parseElements returns the elements matching tag in document order. When
// baseURI parses, src and data-src are resolved against it the way the
// browser resolves the img.src property.
func parseElements(html, baseURI, tag string) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var base *url.URL
	if baseURI != "" {
		if u, err := url.Parse(baseURI); err == nil && u.IsAbs() {
			base = u
		}
	}

	var elements []Element
	doc.Find(tag).Each(func(i int, sel *goquery.Selection) {
		node := sel.Get(0)
		attrs := make(map[string]string, len(node.Attr))
		for _, a := range node.Attr {
			attrs[a.Key] = a.Val
		}
		if base != nil {
			for _, name := range refAttrs {
				if v, ok := attrs[name]; ok {
					attrs[name] = resolveRef(base, v)
				}
			}
		}
		elements = append(elements, Element{Tag: node.Data, Attrs: attrs})
	})
	return elements, nil
}

// resolveRef makes ref absolute against base. data: and other opaque
// references are returned unchanged.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
