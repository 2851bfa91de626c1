package graphql

import (
	"net/http"

	graphqlhandler "github.com/graphql-go/handler"
	"go.uber.org/zap"
)

// Handler handles GraphQL requests
type Handler struct {
	schema  *Schema
	handler *graphqlhandler.Handler
}

// NewHandler creates a GraphQL handler over reader
func NewHandler(reader ShowReader, logger *zap.Logger) (*Handler, error) {
	schema, err := NewSchema(reader, logger)
	if err != nil {
		return nil, err
	}

	h := graphqlhandler.New(&graphqlhandler.Config{
		Schema:     schema.Schema(),
		Pretty:     true,
		GraphiQL:   false,
		Playground: true,
	})

	return &Handler{schema: schema, handler: h}, nil
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
