package domain

import "fmt"

// ItemKind is the catalog discriminator column.
type ItemKind string

const (
	ItemKindAlbum ItemKind = "A"
	ItemKindBook  ItemKind = "B"
	ItemKindMovie ItemKind = "M"
)

func ParseItemKind(s string) (ItemKind, error) {
	switch ItemKind(s) {
	case ItemKindAlbum, ItemKindBook, ItemKindMovie:
		return ItemKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownItemKind, s)
}

type AlbumDetails struct {
	Artist string `json:"artist"`
	Etc    string `json:"etc"`
}

type BookDetails struct {
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type MovieDetails struct {
	Director string `json:"director"`
	Actor    string `json:"actor"`
}

// Item is a catalog entry. Only the details pointer matching Kind is set.
type Item struct {
	ID            int64         `json:"id"`
	Kind          ItemKind      `json:"kind"`
	Name          string        `json:"name"`
	Price         int           `json:"price"`
	StockQuantity int           `json:"stock_quantity"`
	Album         *AlbumDetails `json:"album,omitempty"`
	Book          *BookDetails  `json:"book,omitempty"`
	Movie         *MovieDetails `json:"movie,omitempty"`
}

func NewAlbum(name string, price, stock int, d AlbumDetails) Item {
	return Item{Kind: ItemKindAlbum, Name: name, Price: price, StockQuantity: stock, Album: &d}
}

func NewBook(name string, price, stock int, d BookDetails) Item {
	return Item{Kind: ItemKindBook, Name: name, Price: price, StockQuantity: stock, Book: &d}
}

func NewMovie(name string, price, stock int, d MovieDetails) Item {
	return Item{Kind: ItemKindMovie, Name: name, Price: price, StockQuantity: stock, Movie: &d}
}

// Validate checks that exactly the variant for Kind carries details.
func (i Item) Validate() error {
	var ok bool
	switch i.Kind {
	case ItemKindAlbum:
		ok = i.Album != nil && i.Book == nil && i.Movie == nil
	case ItemKindBook:
		ok = i.Book != nil && i.Album == nil && i.Movie == nil
	case ItemKindMovie:
		ok = i.Movie != nil && i.Album == nil && i.Book == nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownItemKind, i.Kind)
	}
	if !ok {
		return fmt.Errorf("item %d: details do not match kind %s", i.ID, i.Kind)
	}
	return nil
}
