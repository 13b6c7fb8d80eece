// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Post is a listed item. RatingsAverage and RatingsQuantity are denormalized
// from the post's reviews and rewritten by the rating aggregator only.
type Post struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	CategoryID      *uuid.UUID     `db:"category_id" json:"category"`
	Price           float64        `db:"price" json:"price"`
	Summary         string         `db:"summary" json:"summary"`
	Description     string         `db:"description" json:"description"`
	ImageCover      string         `db:"image_cover" json:"imageCover"`
	Images          pq.StringArray `db:"images" json:"images"`
	RatingsAverage  float64        `db:"ratings_average" json:"ratingsAverage"`
	RatingsQuantity int            `db:"ratings_quantity" json:"ratingsQuantity"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`

	// Populated on single-post reads only.
	Reviews []Review `db:"-" json:"reviews,omitempty"`
}

// Files returns every stored image filename the post references.
func (p *Post) Files() []string {
	files := make([]string, 0, len(p.Images)+1)
	if p.ImageCover != "" {
		files = append(files, p.ImageCover)
	}
	for _, img := range p.Images {
		if img != "" {
			files = append(files, img)
		}
	}
	return files
}
