package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariotejeda2001/Glazeepink/db"
)

func TestParseCatalog_Bundled(t *testing.T) {
	products, err := parseCatalog(bytes.NewReader(db.Products))
	require.NoError(t, err)
	require.NotEmpty(t, products)

	for _, p := range products {
		assert.NotEmpty(t, p.Name)
		assert.True(t, p.Price.IsPositive(), p.Name)
		assert.NotNil(t, p.Images, p.Name)
	}
}

func TestParseCatalog_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`[{"name":"Concha","price":12.5,"category":"Pan dulce"}]`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	products, err := parseCatalog(&buf)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Concha", products[0].Name)
	assert.Equal(t, "12.5", products[0].Price.String())
	assert.Empty(t, products[0].Flavors)
	assert.Nil(t, products[0].Servings)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "Empty", input: `[]`, wantErr: "empty"},
		{name: "NoName", input: `[{"price":1}]`, wantErr: "name is required"},
		{name: "Duplicate", input: `[{"name":"A","price":1},{"name":"A","price":2}]`, wantErr: "duplicate"},
		{name: "ZeroPrice", input: `[{"name":"A","price":0}]`, wantErr: "price"},
		{name: "Malformed", input: `{`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog(strings.NewReader(tt.input))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
