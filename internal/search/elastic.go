// Package search indexe les produits dans Elasticsearch et y exécute la
// recherche plein texte.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"vastra_back_end/internal/models"
)

const ProductsIndex = "products"

var ErrUnavailable = errors.New("search index unavailable")

type document struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Fabric      string   `json:"fabric"`
	Category    string   `json:"category"`
	Colors      []string `json:"colors"`
	Price       float64  `json:"price"`
	IsActive    bool     `json:"isActive"`
	Featured    bool     `json:"featured"`
}

func toDocument(p models.Product) document {
	colors := make([]string, 0, len(p.Colors))
	for _, c := range p.Colors {
		colors = append(colors, c.Name)
	}
	return document{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Fabric:      p.Fabric,
		Category:    string(p.Category),
		Colors:      colors,
		Price:       p.EffectivePrice(),
		IsActive:    p.IsActive,
		Featured:    p.Featured,
	}
}

type Index struct {
	es *elasticsearch.Client
}

func NewIndex(es *elasticsearch.Client) *Index {
	return &Index{es: es}
}

// IndexProduct indexe (ou réindexe) un produit.
func (ix *Index) IndexProduct(ctx context.Context, p models.Product) error {
	if ix == nil || ix.es == nil {
		return ErrUnavailable
	}
	data, err := json.Marshal(toDocument(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      ProductsIndex,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return fmt.Errorf("index %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s: %s", p.ID, res.String())
	}
	return nil
}

// IndexAsync indexe en arrière-plan ; les erreurs sont seulement journalisées.
func (ix *Index) IndexAsync(p models.Product) {
	if ix == nil || ix.es == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ix.IndexProduct(ctx, p); err != nil {
			log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %v", p.Name, err)
			return
		}
		log.Printf("✅ Produit indexé dans Elasticsearch: %s", p.Name)
	}()
}

// Search retourne les ids des produits actifs correspondant à query, par
// pertinence décroissante.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if ix == nil || ix.es == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	q := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^3", "description", "fabric", "category", "colors"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]any{"term": map[string]any{"isActive": true}},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{ProductsIndex},
		Body:  &buf,
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
