package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/imgscout/scrapers"
)

// Command factories for async operations

// LoadProductsCmd reads the catalog
func LoadProductsCmd(ctx context.Context, store Catalog) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		products, err := store.List(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading catalog"}
		}
		return ProductsLoadedMsg{Products: products}
	}
}

// SearchCmd waits for the searcher's single result off the update loop
func SearchCmd(ctx context.Context, searcher Searcher, query string, seq int) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-searcher.Search(ctx, query)
		if !ok {
			res = scrapers.Result{Query: query, Err: errors.New("search ended without a result")}
		}
		return SearchDoneMsg{Seq: seq, Result: res}
	}
}

// ThumbnailCmd fetches and decodes one image
func ThumbnailCmd(ctx context.Context, thumbnailer Thumbnailer, url string, size int) tea.Cmd {
	return func() tea.Msg {
		info, err := thumbnailer.Probe(ctx, url, size)
		return ThumbnailMsg{URL: url, Info: info, Err: err}
	}
}

// AddProductCmd stores a product
func AddProductCmd(ctx context.Context, store Catalog, name, imageURL string) tea.Cmd {
	return func() tea.Msg {
		id, err := store.Append(ctx, name, imageURL)
		if err != nil {
			return ErrMsg{Err: err, Context: "adding product"}
		}
		return ProductAddedMsg{ID: id, Name: name, ImageURL: imageURL}
	}
}

// DeleteProductCmd removes a product
func DeleteProductCmd(ctx context.Context, store Catalog, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := store.Delete(ctx, id); err != nil {
			return ErrMsg{Err: err, Context: "deleting product"}
		}
		return ProductDeletedMsg{ID: id}
	}
}
