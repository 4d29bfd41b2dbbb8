package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
)

var gzipMagic = []byte{0x1f, 0x8b}

// parseCatalog reads a JSON array of products, transparently gunzipping it.
func parseCatalog(r io.Reader) ([]product.Product, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(2); bytes.Equal(head, gzipMagic) {
		zr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	} else {
		r = br
	}

	var products []product.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if err := validateCatalog(products); err != nil {
		return nil, err
	}
	return products, nil
}

func validateCatalog(products []product.Product) error {
	if len(products) == 0 {
		return errors.New("catalog is empty")
	}
	seen := make(map[string]struct{}, len(products))
	for i, p := range products {
		if p.Name == "" {
			return errors.Errorf("product %d: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return errors.Errorf("product %q: duplicate name", p.Name)
		}
		seen[p.Name] = struct{}{}
		if !p.Price.IsPositive() {
			return errors.Errorf("product %q: price must be positive", p.Name)
		}
		if p.Images == nil {
			products[i].Images = []string{}
		}
		if p.Flavors == nil {
			products[i].Flavors = []string{}
		}
	}
	return nil
}
