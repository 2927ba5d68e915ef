package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/imgscout/catalog"
	"github.com/imgscout/scrapers"
	"github.com/imgscout/thumbs"
	"github.com/imgscout/tui/styles"
	"github.com/rs/zerolog"
)

// Searcher runs one image search and delivers its single result.
type Searcher interface {
	Search(ctx context.Context, query string) <-chan scrapers.Result
}

// Catalog is the product store shown in the catalog view.
type Catalog interface {
	Append(ctx context.Context, name, imageURL string) (int64, error)
	List(ctx context.Context) ([]catalog.Product, error)
	Delete(ctx context.Context, id int64) error
}

// Thumbnailer loads and decodes an image for display.
type Thumbnailer interface {
	Probe(ctx context.Context, url string, size int) (thumbs.Info, error)
}

type viewMode int

const (
	catalogView viewMode = iota
	searchView
)

type thumbState int

const (
	thumbLoading thumbState = iota
	thumbLoaded
	thumbFailed
)

type thumbStatus struct {
	state thumbState
	info  thumbs.Info
	err   error
}

// Model is the root bubbletea model
type Model struct {
	ctx         context.Context
	searcher    Searcher
	catalog     Catalog
	thumbnailer Thumbnailer
	thumbSize   int
	logger      zerolog.Logger
	keys        KeyMap

	view   viewMode
	width  int
	height int

	// Catalog view
	products    []catalog.Product
	filtered    []int // nil when no filter is applied
	filterInput textinput.Model
	filtering   bool
	cursor      int

	// Search view
	queryInput    textinput.Model
	spinner       spinner.Model
	searching     bool
	searchSeq     int
	searched      bool
	query         string
	results       []string
	resultErr     error
	resultCursor  int
	resultFocused bool

	thumbs map[string]thumbStatus
	status string
	err    error
}

// NewModel creates the TUI. ctx bounds every background operation.
func NewModel(
	ctx context.Context,
	searcher Searcher,
	store Catalog,
	thumbnailer Thumbnailer,
	thumbSize int,
	logger zerolog.Logger,
) Model {
	qi := textinput.New()
	qi.Placeholder = "product name..."
	qi.CharLimit = 100
	qi.Width = 40
	qi.Prompt = "search: "
	qi.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	qi.PlaceholderStyle = styles.DimStyle

	fi := textinput.New()
	fi.Placeholder = "filter..."
	fi.CharLimit = 50
	fi.Width = 30
	fi.Prompt = "/"
	fi.PlaceholderStyle = styles.DimStyle

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.AccentStyle))

	if thumbSize <= 0 {
		thumbSize = thumbs.DefaultSize
	}

	return Model{
		ctx:         ctx,
		searcher:    searcher,
		catalog:     store,
		thumbnailer: thumbnailer,
		thumbSize:   thumbSize,
		logger:      logger.With().Str("component", "tui").Logger(),
		keys:        DefaultKeyMap(),
		filterInput: fi,
		queryInput:  qi,
		spinner:     sp,
		thumbs:      make(map[string]thumbStatus),
	}
}

// Init loads the catalog
func (m Model) Init() tea.Cmd {
	return LoadProductsCmd(m.ctx, m.catalog)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ProductsLoadedMsg:
		m.products = msg.Products
		m.applyFilter()
		m.clampCursor()
		return m, m.loadThumbnails(productURLs(msg.Products))

	case SearchDoneMsg:
		return m.handleSearchDone(msg)

	case ThumbnailMsg:
		if msg.Err != nil {
			m.logger.Debug().Err(msg.Err).Str("url", msg.URL).Msg("thumbnail failed")
			m.thumbs[msg.URL] = thumbStatus{state: thumbFailed, err: msg.Err}
		} else {
			m.thumbs[msg.URL] = thumbStatus{state: thumbLoaded, info: msg.Info}
		}
		return m, nil

	case ProductAddedMsg:
		m.status = styles.SuccessStyle.Render(fmt.Sprintf("added %q", msg.Name))
		m.err = nil
		return m, LoadProductsCmd(m.ctx, m.catalog)

	case ProductDeletedMsg:
		m.status = styles.SuccessStyle.Render("deleted")
		m.err = nil
		return m, LoadProductsCmd(m.ctx, m.catalog)

	case ErrMsg:
		m.logger.Error().Err(msg.Err).Str("context", msg.Context).Msg("operation failed")
		m.err = msg
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.view {
	case searchView:
		return m.handleSearchKeys(msg)
	default:
		return m.handleCatalogKeys(msg)
	}
}

func (m Model) handleCatalogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "enter":
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		case "esc":
			m.filtering = false
			m.filterInput.Blur()
			m.filterInput.SetValue("")
			m.applyFilter()
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		m.cursor = 0
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visibleProducts())-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Delete):
		if p, ok := m.selectedProduct(); ok {
			return m, DeleteProductCmd(m.ctx, m.catalog, p.ID)
		}

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filterInput.Focus()

	case key.Matches(msg, m.keys.Back):
		m.filterInput.SetValue("")
		m.applyFilter()

	case key.Matches(msg, m.keys.Refresh):
		return m, LoadProductsCmd(m.ctx, m.catalog)

	case key.Matches(msg, m.keys.Search):
		m.view = searchView
		m.err = nil
		m.status = ""
		m.resultFocused = false
		return m, m.queryInput.Focus()
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.resultFocused {
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.startSearch()
		case key.Matches(msg, m.keys.Back):
			if len(m.results) > 0 {
				m.resultFocused = true
				m.queryInput.Blur()
				return m, nil
			}
			return m.backToCatalog()
		}
		var cmd tea.Cmd
		m.queryInput, cmd = m.queryInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.resultCursor > 0 {
			m.resultCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.resultCursor < len(m.results)-1 {
			m.resultCursor++
		}

	case key.Matches(msg, m.keys.Add):
		if m.resultCursor < len(m.results) {
			return m, AddProductCmd(m.ctx, m.catalog, m.query, m.results[m.resultCursor])
		}

	case key.Matches(msg, m.keys.Search), key.Matches(msg, m.keys.Filter):
		m.resultFocused = false
		return m, m.queryInput.Focus()

	case key.Matches(msg, m.keys.Back):
		return m.backToCatalog()
	}

	return m, nil
}

// startSearch launches a search unless one is already running.
func (m Model) startSearch() (tea.Model, tea.Cmd) {
	if m.searching {
		return m, nil
	}

	m.searching = true
	m.searched = false
	m.searchSeq++
	m.query = m.queryInput.Value()
	m.results = nil
	m.resultErr = nil
	m.resultCursor = 0
	m.err = nil
	m.status = ""
	m.queryInput.Blur()

	m.logger.Info().Str("query", m.query).Msg("search started")
	return m, tea.Batch(m.spinner.Tick, SearchCmd(m.ctx, m.searcher, m.query, m.searchSeq))
}

// handleSearchDone applies the result of the running search and drops
// anything else.
func (m Model) handleSearchDone(msg SearchDoneMsg) (tea.Model, tea.Cmd) {
	if !m.searching || msg.Seq != m.searchSeq {
		m.logger.Debug().Int("seq", msg.Seq).Str("query", msg.Result.Query).Msg("stale search result dropped")
		return m, nil
	}
	res := msg.Result

	m.searching = false
	m.searched = true
	m.results = res.Images
	m.resultErr = res.Err
	m.resultCursor = 0

	m.logger.Info().
		Str("search_id", res.ID).
		Str("query", res.Query).
		Strs("images", res.Images).
		AnErr("search_err", res.Err).
		Msg("search finished")

	if len(m.results) > 0 {
		m.resultFocused = true
	} else {
		m.resultFocused = false
		return m, m.queryInput.Focus()
	}
	return m, m.loadThumbnails(m.results)
}

func (m Model) backToCatalog() (tea.Model, tea.Cmd) {
	m.view = catalogView
	m.queryInput.Blur()
	m.resultFocused = false
	return m, LoadProductsCmd(m.ctx, m.catalog)
}

// loadThumbnails probes every url not seen before.
func (m Model) loadThumbnails(urls []string) tea.Cmd {
	var cmds []tea.Cmd
	for _, u := range urls {
		if _, seen := m.thumbs[u]; seen {
			continue
		}
		m.thumbs[u] = thumbStatus{state: thumbLoading}
		cmds = append(cmds, ThumbnailCmd(m.ctx, m.thumbnailer, u, m.thumbSize))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) applyFilter() {
	m.filtered = filterProducts(m.products, m.filterInput.Value())
}

func (m *Model) clampCursor() {
	n := len(m.visibleProducts())
	if m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) visibleProducts() []catalog.Product {
	if m.filtered == nil {
		return m.products
	}
	out := make([]catalog.Product, len(m.filtered))
	for i, idx := range m.filtered {
		out[i] = m.products[idx]
	}
	return out
}

func (m Model) selectedProduct() (catalog.Product, bool) {
	visible := m.visibleProducts()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return catalog.Product{}, false
	}
	return visible[m.cursor], true
}

func productURLs(products []catalog.Product) []string {
	urls := make([]string, len(products))
	for i, p := range products {
		urls[i] = p.ImageURL
	}
	return urls
}

// View renders the current view
func (m Model) View() string {
	var b strings.Builder
	switch m.view {
	case searchView:
		m.renderSearch(&b)
	default:
		m.renderCatalog(&b)
	}

	if m.err != nil {
		b.WriteString("\n" + styles.ErrorStyle.Render(m.err.Error()))
	} else if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	return b.String()
}

func (m Model) renderCatalog(b *strings.Builder) {
	b.WriteString(styles.HeaderStyle.Render("imgscout · catalog"))
	b.WriteString("\n")

	if m.filtering || m.filterInput.Value() != "" {
		b.WriteString(m.filterInput.View() + "\n\n")
	}

	visible := m.visibleProducts()
	if len(visible) == 0 {
		if len(m.products) == 0 {
			b.WriteString(styles.DimStyle.Render("no products yet, press s to search for images"))
		} else {
			b.WriteString(styles.DimStyle.Render("no matches"))
		}
		b.WriteString("\n")
	}

	for i, p := range visible {
		line := fmt.Sprintf("%s %s  %s", m.thumbIndicator(p.ImageURL), p.Name, styles.DimStyle.Render(p.ImageURL))
		if i == m.cursor {
			b.WriteString(styles.SelectedStyle.Render(line))
		} else {
			b.WriteString(styles.ItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.FooterStyle.Render("s search · d delete · / filter · r refresh · q quit"))
}

func (m Model) renderSearch(b *strings.Builder) {
	b.WriteString(styles.HeaderStyle.Render("imgscout · search"))
	b.WriteString("\n")
	b.WriteString(m.queryInput.View())
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(m.spinner.View() + " searching...\n")
	case m.resultErr != nil && len(m.results) == 0:
		b.WriteString(styles.ErrorStyle.Render("search failed: "+m.resultErr.Error()) + "\n")
	case m.searched && len(m.results) == 0:
		b.WriteString(styles.DimStyle.Render("no images found") + "\n")
	}

	for i, u := range m.results {
		line := fmt.Sprintf("%s %s", m.thumbIndicator(u), u)
		if st, ok := m.thumbs[u]; ok && st.state == thumbLoaded {
			line += styles.DimStyle.Render(fmt.Sprintf("  %s %dx%d", st.info.Format, st.info.Width, st.info.Height))
		}
		if st, ok := m.thumbs[u]; ok && st.state == thumbFailed {
			line += styles.ErrorStyle.Render("  failed to load")
		}
		if i == m.resultCursor && m.resultFocused {
			b.WriteString(styles.SelectedStyle.Render(line))
		} else {
			b.WriteString(styles.ItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.resultErr != nil && len(m.results) > 0 {
		b.WriteString(styles.DimStyle.Render("partial results: "+m.resultErr.Error()) + "\n")
	}

	if m.resultFocused {
		b.WriteString(styles.FooterStyle.Render("a/enter add as product · s new search · esc catalog · q quit"))
	} else {
		b.WriteString(styles.FooterStyle.Render("enter search · esc back"))
	}
}

func (m Model) thumbIndicator(url string) string {
	st, ok := m.thumbs[url]
	if !ok {
		return styles.DimStyle.Render(styles.LoadingChar)
	}
	switch st.state {
	case thumbLoaded:
		return styles.LoadedStyle.Render(styles.LoadedChar)
	case thumbFailed:
		return styles.FailedStyle.Render(styles.FailedChar)
	default:
		return styles.LoadingStyle.Render(styles.LoadingChar)
	}
}
