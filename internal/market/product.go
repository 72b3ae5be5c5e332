package market

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Product is a tradeable good. The catalogue is fixed.
type Product string

const (
	Fish  Product = "FISH"
	Salt  Product = "SALT"
	Boars Product = "BOARS"
)

var prices = map[Product]int{
	Fish:  2,
	Salt:  1,
	Boars: 3,
}

// Products returns the catalogue in a stable order.
func Products() []Product {
	return []Product{Fish, Salt, Boars}
}

// ParseProduct resolves a product name, case-insensitively.
func ParseProduct(name string) (Product, error) {
	p := Product(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := prices[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	return p, nil
}

// Valid reports whether p is part of the catalogue.
func (p Product) Valid() bool {
	_, ok := prices[p]
	return ok
}

// Price returns the unit price of the product, or 0 if unknown.
func (p Product) Price() int {
	return prices[p]
}

func (p Product) String() string {
	return string(p)
}

// Picker chooses what a buyer asks for and what a seller stocks.
type Picker interface {
	Product() Product
	Quantity() int64
}

// RandomPicker picks uniformly from the catalogue and quantities 1..5.
type RandomPicker struct{}

// Product returns a random catalogue product.
func (RandomPicker) Product() Product {
	all := Products()
	return all[rand.IntN(len(all))]
}

// Quantity returns a random amount between 1 and 5.
func (RandomPicker) Quantity() int64 {
	return int64(rand.IntN(5)) + 1
}
