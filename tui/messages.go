package tui

import (
	"github.com/imgscout/catalog"
	"github.com/imgscout/scrapers"
	"github.com/imgscout/thumbs"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// ProductsLoadedMsg signals that the catalog has been read
type ProductsLoadedMsg struct {
	Products []catalog.Product
}

// SearchDoneMsg carries the single result of an image search. Seq
// identifies the search that produced it.
type SearchDoneMsg struct {
	Seq    int
	Result scrapers.Result
}

// ThumbnailMsg reports whether one image could be fetched and decoded
type ThumbnailMsg struct {
	URL  string
	Info thumbs.Info
	Err  error
}

// ProductAddedMsg signals that a product was stored
type ProductAddedMsg struct {
	ID       int64
	Name     string
	ImageURL string
}

// ProductDeletedMsg signals that a product was removed
type ProductDeletedMsg struct {
	ID int64
}
