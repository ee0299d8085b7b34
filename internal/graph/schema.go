package graph

import (
	_ "embed"

	graphql "github.com/graph-gophers/graphql-go"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema definition served by the API.
func SDL() string {
	return schemaSDL
}

// NewSchema parses the schema and binds it to the resolver.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, r, graphql.MaxDepth(8))
}
