// Package search keeps a full-text index of board posts.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"unionhall/models"
)

// Index wraps a Bleve search index
type Index struct {
	index bleve.Index
}

// IndexedPost is the document stored for a post.
type IndexedPost struct {
	ID      string
	Title   string
	Content string
	Author  string
	Board   string
}

type Result struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Board     string              `json:"board"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Open opens or creates an index at path. An empty path gives an in-memory
// index that is rebuilt on every start.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = "keyword"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", textFieldMapping)
	docMapping.AddFieldMappingsAt("Content", textFieldMapping)
	docMapping.AddFieldMappingsAt("Author", textFieldMapping)
	docMapping.AddFieldMappingsAt("Board", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

func (i *Index) Close() error {
	return i.index.Close()
}

func document(p *models.Post) *IndexedPost {
	doc := &IndexedPost{
		ID:     p.ID,
		Title:  p.Title,
		Author: p.Author,
		Board:  string(p.Board),
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
	return doc
}

// IndexPost adds or updates a post. Trashed posts are removed instead.
func (i *Index) IndexPost(p *models.Post) error {
	if p.Board == models.BoardTrash {
		return i.Delete(p.ID)
	}
	return i.index.Index(p.ID, document(p))
}

func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Reindex indexes every post in one batch.
func (i *Index) Reindex(posts []models.Post) error {
	batch := i.index.NewBatch()
	for k := range posts {
		p := &posts[k]
		if p.Board == models.BoardTrash {
			continue
		}
		if err := batch.Index(p.ID, document(p)); err != nil {
			return fmt.Errorf("batch index %s: %w", p.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search matches queryStr against title, content and author. Title matches
// weigh more.
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return nil, nil
	}

	title := bleve.NewMatchQuery(queryStr)
	title.SetField("Title")
	title.SetBoost(3)
	content := bleve.NewMatchQuery(queryStr)
	content.SetField("Content")
	author := bleve.NewMatchQuery(queryStr)
	author.SetField("Author")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(title, content, author), limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title", "Board"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		r := &Result{ID: hit.ID, Score: hit.Score, Fragments: hit.Fragments}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		if board, ok := hit.Fields["Board"].(string); ok {
			r.Board = board
		}
		out = append(out, r)
	}
	return out, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
