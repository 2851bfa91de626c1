// Package graphql serves read-only show queries over GraphQL.
package graphql

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

// ShowReader is the read side the schema resolves against
type ShowReader interface {
	GetShowByID(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, error)
	ListShows(ctx context.Context, limit, offset int) ([]storage.ShowSnapshot, error)
}

// Schema holds the GraphQL schema
type Schema struct {
	schema graphql.Schema
	reader ShowReader
	logger *zap.Logger
}

// NewSchema builds the query schema
func NewSchema(reader ShowReader, logger *zap.Logger) (*Schema, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Schema{reader: reader, logger: logger}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"show": &graphql.Field{
				Type:        showType,
				Description: "Show by id, decimal or 0x-prefixed hex; null when absent",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: s.resolveShow,
			},
			"shows": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(showType))),
				Description: "Shows ordered by id",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
					"offset": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
				},
				Resolve: s.resolveShows,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// Schema returns the underlying graphql-go schema
func (s *Schema) Schema() *graphql.Schema {
	return &s.schema
}

func (s *Schema) resolveShow(p graphql.ResolveParams) (interface{}, error) {
	raw, ok := p.Args["id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid show id")
	}
	id, err := u256.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid show id: %w", err)
	}

	show, err := s.reader.GetShowByID(p.Context, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to get show", zap.String("show_id", id.String()), zap.Error(err))
		return nil, err
	}
	return showToMap(show), nil
}

func (s *Schema) resolveShows(p graphql.ResolveParams) (interface{}, error) {
	limit, _ := p.Args["limit"].(int)
	offset, _ := p.Args["offset"].(int)
	limit, offset = storage.NormalizePage(limit, offset)

	shows, err := s.reader.ListShows(p.Context, limit, offset)
	if err != nil {
		s.logger.Error("failed to list shows", zap.Error(err))
		return nil, err
	}

	items := make([]interface{}, 0, len(shows))
	for i := range shows {
		items = append(items, showToMap(&shows[i]))
	}
	return items, nil
}
