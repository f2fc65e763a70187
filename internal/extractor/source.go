package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// Directory is a batch source backed by a folder of PDF statements.
// It satisfies the batch aggregator's Source contract.
type Directory struct {
	Dir string
	// HeaderPages bounds how many leading pages feed the header matcher.
	// Statement headers live on the first page or two; scanning further
	// only invites false matches from transaction narrations.
	HeaderPages int
	// MaxDocs caps the batch size; zero means the default cap.
	MaxDocs int
}

const (
	defaultHeaderPages = 2
	defaultMaxDocs     = 100
)

// List returns the sorted PDF file names in the directory, capped at
// MaxDocs.
func (d *Directory) List() ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %q: %w", d.Dir, err)
	}

	var refs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			refs = append(refs, e.Name())
		}
	}
	sort.Strings(refs)

	max := d.MaxDocs
	if max <= 0 {
		max = defaultMaxDocs
	}
	if len(refs) > max {
		refs = refs[:max]
	}
	return refs, nil
}

// Load extracts one document's page text. The PDF handle is released
// inside ExtractPages; Load holds no resources after returning.
func (d *Directory) Load(ctx context.Context, ref string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages, err := ExtractPages(filepath.Join(d.Dir, ref))
	if err != nil {
		return nil, err
	}
	return PagesToDocument(ref, pages, d.HeaderPages), nil
}

// PagesToDocument shapes extracted page text into the engine's input
// contract: the leading pages become the header region, every page's
// lines become the flat-text body.
func PagesToDocument(id string, pages []string, headerPages int) *models.Document {
	if headerPages <= 0 {
		headerPages = defaultHeaderPages
	}
	hp := headerPages
	if hp > len(pages) {
		hp = len(pages)
	}

	doc := &models.Document{
		ID:         id,
		HeaderText: strings.Join(pages[:hp], "\n"),
	}
	for _, page := range pages {
		doc.Lines = append(doc.Lines, strings.Split(page, "\n")...)
	}
	return doc
}
