// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package query

// Posts lists the public post fields.
var Posts = &Spec{
	Fields: map[string]Field{
		"id":              {Column: "id", Type: ID, Filter: true, Sortable: true},
		"title":           {Column: "title", Type: String, Filter: true, Sortable: true},
		"category":        {Column: "category_id", Type: ID, Filter: true},
		"price":           {Column: "price", Type: Number, Filter: true, Sortable: true},
		"summary":         {Column: "summary", Type: String},
		"description":     {Column: "description", Type: String},
		"imageCover":      {Column: "image_cover", Type: String},
		"images":          {Column: "images", Type: String},
		"ratingsAverage":  {Column: "ratings_average", Type: Number, Filter: true, Sortable: true},
		"ratingsQuantity": {Column: "ratings_quantity", Type: Integer, Filter: true, Sortable: true},
		"createdAt":       {Column: "created_at", Type: Timestamp, Filter: true, Sortable: true},
	},
	SearchColumn: "title",
	DefaultSort:  "-createdAt",
}

// Categories lists the public category fields.
var Categories = &Spec{
	Fields: map[string]Field{
		"id":        {Column: "id", Type: ID, Filter: true, Sortable: true},
		"name":      {Column: "name", Type: String, Filter: true, Sortable: true},
		"createdAt": {Column: "created_at", Type: Timestamp, Filter: true, Sortable: true},
	},
	SearchColumn: "name",
	DefaultSort:  "name",
}

// Reviews lists the public review fields. Columns are qualified because
// review queries join users.
var Reviews = &Spec{
	Fields: map[string]Field{
		"id":          {Column: "r.id", Type: ID, Filter: true, Sortable: true},
		"post":        {Column: "r.post_id", Type: ID},
		"user":        {Column: "r.user_id", Type: ID, Filter: true},
		"review":      {Column: "r.review", Type: String},
		"rating":      {Column: "r.rating", Type: Integer, Filter: true, Sortable: true},
		"createdAt":   {Column: "r.created_at", Type: Timestamp, Filter: true, Sortable: true},
		"updatedAt":   {Column: "r.updated_at", Type: Timestamp, Sortable: true},
		"authorName":  {Column: "u.name", Type: String},
		"authorPhoto": {Column: "u.photo", Type: String},
	},
	SearchColumn: "r.review",
	DefaultSort:  "-createdAt",
}

// Users lists the user fields visible to administrators.
var Users = &Spec{
	Fields: map[string]Field{
		"id":          {Column: "id", Type: ID, Filter: true, Sortable: true},
		"name":        {Column: "name", Type: String, Filter: true, Sortable: true},
		"email":       {Column: "email", Type: String, Filter: true, Sortable: true},
		"photo":       {Column: "photo", Type: String},
		"role":        {Column: "role", Type: String, Filter: true, Sortable: true},
		"totpEnabled": {Column: "totp_enabled", Type: String},
		"createdAt":   {Column: "created_at", Type: Timestamp, Filter: true, Sortable: true},
		"updatedAt":   {Column: "updated_at", Type: Timestamp, Sortable: true},
	},
	SearchColumn: "name",
	DefaultSort:  "name",
}
