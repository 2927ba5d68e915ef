package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/imgscout/catalog"
	"github.com/imgscout/scrapers"
	"github.com/imgscout/thumbs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	mu     sync.Mutex
	calls  []string
	result scrapers.Result
}

func (f *fakeSearcher) Search(ctx context.Context, query string) <-chan scrapers.Result {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()

	out := make(chan scrapers.Result, 1)
	r := f.result
	r.Query = query
	out <- r
	close(out)
	return out
}

type fakeCatalog struct {
	mu       sync.Mutex
	products []catalog.Product
	nextID   int64
}

func (f *fakeCatalog) Append(ctx context.Context, name, imageURL string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !scrapers.IsFetchable(imageURL) {
		return 0, catalog.ErrInvalidImageURL
	}
	f.nextID++
	f.products = append(f.products, catalog.Product{ID: f.nextID, Name: name, ImageURL: imageURL})
	return f.nextID, nil
}

func (f *fakeCatalog) List(ctx context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Product(nil), f.products...), nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.products {
		if p.ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return catalog.ErrNotFound
}

type fakeThumbnailer struct {
	failing map[string]bool
}

func (f *fakeThumbnailer) Probe(ctx context.Context, url string, size int) (thumbs.Info, error) {
	if f.failing[url] {
		return thumbs.Info{}, errors.New("HTTP request failed with status: 404")
	}
	return thumbs.Info{URL: url, Format: "png", Width: size, Height: size}, nil
}

func newTestModel(t *testing.T, products ...catalog.Product) (Model, *fakeSearcher, *fakeCatalog, *fakeThumbnailer) {
	t.Helper()
	s := &fakeSearcher{}
	c := &fakeCatalog{products: products, nextID: int64(len(products))}
	th := &fakeThumbnailer{failing: map[string]bool{}}
	return NewModel(context.Background(), s, c, th, 150, zerolog.Nop()), s, c, th
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// feed applies every message produced by cmd except follow-up commands.
func feed(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		m, _ = update(t, m, msg)
	}
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestInitLoadsCatalogWithThumbnailStatus(t *testing.T) {
	m, _, _, th := newTestModel(t,
		catalog.Product{ID: 1, Name: "chair", ImageURL: "https://a.example/chair.jpg"},
		catalog.Product{ID: 2, Name: "table", ImageURL: "https://a.example/table.jpg"},
	)
	th.failing["https://a.example/table.jpg"] = true

	m, cmd := update(t, m, m.Init()())
	require.Len(t, m.products, 2)
	m = feed(t, m, cmd)

	assert.Equal(t, thumbLoaded, m.thumbs["https://a.example/chair.jpg"].state)
	assert.Equal(t, thumbFailed, m.thumbs["https://a.example/table.jpg"].state)

	view := m.View()
	assert.Contains(t, view, "chair")
	assert.Contains(t, view, "table")
}

func TestSearchDisablesTriggerWhileInFlight(t *testing.T) {
	m, searcher, _, _ := newTestModel(t)
	searcher.result = scrapers.Result{
		ID:     "id-1",
		Images: []string{"https://img.example/1.jpg", "https://img.example/2.jpg"},
	}

	m, _ = update(t, m, keyPress("s"))
	require.Equal(t, searchView, m.view)
	m, _ = update(t, m, keyPress("chair"))

	m, searchCmd := update(t, m, keyPress("enter"))
	require.NotNil(t, searchCmd)
	assert.True(t, m.searching)
	assert.Contains(t, m.View(), "searching")

	m, again := update(t, m, keyPress("enter"))
	assert.Nil(t, again, "second trigger while searching is ignored")

	var done SearchDoneMsg
	for _, msg := range collect(searchCmd) {
		if d, ok := msg.(SearchDoneMsg); ok {
			done = d
		}
	}
	assert.Equal(t, []string{"chair"}, searcher.calls)

	m, thumbCmd := update(t, m, done)
	assert.False(t, m.searching)
	assert.True(t, m.resultFocused)
	assert.Equal(t, searcher.result.Images, m.results)

	m = feed(t, m, thumbCmd)
	assert.Equal(t, thumbLoaded, m.thumbs["https://img.example/2.jpg"].state)
	assert.Contains(t, m.View(), "png 150x150")
}

func TestAddProductUsesQueryAsName(t *testing.T) {
	m, searcher, store, _ := newTestModel(t)
	searcher.result = scrapers.Result{Images: []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}}

	m, _ = update(t, m, keyPress("s"))
	m, _ = update(t, m, keyPress("red chair"))
	m, cmd := update(t, m, keyPress("enter"))
	for _, msg := range collect(cmd) {
		if done, ok := msg.(SearchDoneMsg); ok {
			m, _ = update(t, m, done)
		}
	}

	m, _ = update(t, m, keyPress("j"))
	m, addCmd := update(t, m, keyPress("a"))
	require.NotNil(t, addCmd)

	msgs := collect(addCmd)
	require.Len(t, msgs, 1)
	added, ok := msgs[0].(ProductAddedMsg)
	require.True(t, ok)
	assert.Equal(t, "red chair", added.Name)

	products, _ := store.List(context.Background())
	require.Len(t, products, 1)
	assert.Equal(t, "https://img.example/2.jpg", products[0].ImageURL)

	m, reload := update(t, m, added)
	assert.NotNil(t, reload)
	assert.Contains(t, m.View(), "added")
}

func TestSearchOutcomesAreDistinguished(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m, _ = update(t, m, keyPress("s"))
	m, _ = update(t, m, keyPress("x"))
	m, cmd := update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)

	failed, _ := update(t, m, SearchDoneMsg{Seq: m.searchSeq, Result: scrapers.Result{Query: "x", Err: scrapers.ErrNavigation}})
	assert.Contains(t, failed.View(), "search failed")
	assert.NotContains(t, failed.View(), "no images found")
	assert.False(t, failed.resultFocused)

	empty, _ := update(t, m, SearchDoneMsg{Seq: m.searchSeq, Result: scrapers.Result{Query: "x"}})
	assert.Contains(t, empty.View(), "no images found")
}

func TestEmptyQuerySearchShowsEmptyState(t *testing.T) {
	m, searcher, _, _ := newTestModel(t)
	m, _ = update(t, m, keyPress("s"))
	assert.NotContains(t, m.View(), "no images found")

	m, cmd := update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	m = feed(t, m, cmd)

	assert.Equal(t, []string{""}, searcher.calls)
	assert.False(t, m.searching)
	assert.Contains(t, m.View(), "no images found")
}

func TestDeleteSelectedProduct(t *testing.T) {
	m, _, store, _ := newTestModel(t,
		catalog.Product{ID: 1, Name: "chair", ImageURL: "https://a.example/chair.jpg"},
		catalog.Product{ID: 2, Name: "table", ImageURL: "https://a.example/table.jpg"},
	)
	m, _ = update(t, m, m.Init()())

	m, _ = update(t, m, keyPress("j"))
	m, cmd := update(t, m, keyPress("d"))
	require.NotNil(t, cmd)

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, ProductDeletedMsg{ID: 2}, msgs[0])

	m, reload := update(t, m, msgs[0])
	m, _ = update(t, m, reload())
	require.Len(t, m.products, 1)
	assert.Equal(t, "chair", m.products[0].Name)

	products, _ := store.List(context.Background())
	assert.Len(t, products, 1)
}

func TestCatalogFilter(t *testing.T) {
	m, _, _, _ := newTestModel(t,
		catalog.Product{ID: 1, Name: "Oak Chair", ImageURL: "https://a.example/1.jpg"},
		catalog.Product{ID: 2, Name: "Glass Table", ImageURL: "https://a.example/2.jpg"},
		catalog.Product{ID: 3, Name: "Office chair", ImageURL: "https://a.example/3.jpg"},
	)
	m, _ = update(t, m, m.Init()())

	m, _ = update(t, m, keyPress("/"))
	require.True(t, m.filtering)
	m, _ = update(t, m, keyPress("chair"))

	visible := m.visibleProducts()
	require.Len(t, visible, 2)
	for _, p := range visible {
		assert.Contains(t, p.Name, "hair")
	}

	m, _ = update(t, m, keyPress("esc"))
	assert.False(t, m.filtering)
	assert.Len(t, m.visibleProducts(), 3)
}

func TestFilterProducts(t *testing.T) {
	products := []catalog.Product{{Name: "chair"}, {Name: "table"}, {Name: "armchair"}}

	assert.Nil(t, filterProducts(products, "  "))
	assert.ElementsMatch(t, []int{0, 2}, filterProducts(products, "CHR"))
	assert.Empty(t, filterProducts(products, "zzz"))
	assert.NotNil(t, filterProducts(products, "zzz"))
}

func TestUnrelatedErrorKeepsSearchRunning(t *testing.T) {
	m, searcher, _, _ := newTestModel(t)
	m, _ = update(t, m, keyPress("s"))
	m, _ = update(t, m, keyPress("red shoes"))
	m, first := update(t, m, keyPress("enter"))
	require.NotNil(t, first)

	m, _ = update(t, m, ErrMsg{Err: errors.New("database is locked"), Context: "loading catalog"})
	assert.True(t, m.searching)
	assert.Contains(t, m.View(), "loading catalog: database is locked")

	m, again := update(t, m, keyPress("enter"))
	assert.Nil(t, again)

	searcher.result = scrapers.Result{Images: []string{"https://img.example/shoe.jpg"}}
	m = feed(t, m, first)
	assert.False(t, m.searching)
	assert.Equal(t, []string{"red shoes"}, searcher.calls)
	assert.Equal(t, []string{"https://img.example/shoe.jpg"}, m.results)
}

func TestStaleSearchResultIsDropped(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m, _ = update(t, m, keyPress("s"))
	m, _ = update(t, m, keyPress("chair"))
	m, _ = update(t, m, keyPress("enter"))
	current := m.searchSeq

	m, cmd := update(t, m, SearchDoneMsg{Seq: current - 1, Result: scrapers.Result{Query: "old", Images: []string{"https://img.example/old.jpg"}}})
	assert.Nil(t, cmd)
	assert.True(t, m.searching)
	assert.Empty(t, m.results)

	m, _ = update(t, m, SearchDoneMsg{Seq: current, Result: scrapers.Result{Query: "chair", Images: []string{"https://img.example/new.jpg"}}})
	assert.False(t, m.searching)
	assert.Equal(t, []string{"https://img.example/new.jpg"}, m.results)

	m, _ = update(t, m, SearchDoneMsg{Seq: current, Result: scrapers.Result{Query: "chair"}})
	assert.Equal(t, []string{"https://img.example/new.jpg"}, m.results, "duplicate delivery is ignored")
}

func TestSearchCmdReportsClosedChannel(t *testing.T) {
	closed := searcherFunc(func(ctx context.Context, query string) <-chan scrapers.Result {
		out := make(chan scrapers.Result)
		close(out)
		return out
	})

	msg := SearchCmd(context.Background(), closed, "lamp", 3)()
	done, ok := msg.(SearchDoneMsg)
	require.True(t, ok)
	assert.Equal(t, 3, done.Seq)
	assert.Equal(t, "lamp", done.Result.Query)
	assert.Error(t, done.Result.Err)
}

type searcherFunc func(ctx context.Context, query string) <-chan scrapers.Result

func (f searcherFunc) Search(ctx context.Context, query string) <-chan scrapers.Result {
	return f(ctx, query)
}
