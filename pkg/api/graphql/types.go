package graphql

import (
	"time"

	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// uint256Type carries 256-bit values as decimal strings. Input accepts
// decimal or 0x-prefixed hex.
var uint256Type = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Uint256",
	Description: "Unsigned 256-bit integer, serialized as a decimal string",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case u256.Uint256:
			return v.String()
		case *u256.Uint256:
			if v == nil {
				return nil
			}
			return v.String()
		default:
			return nil
		}
	},
	ParseValue: func(value interface{}) interface{} {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		v, err := u256.Parse(s)
		if err != nil {
			return nil
		}
		return v
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		var raw string
		switch v := valueAST.(type) {
		case *ast.StringValue:
			raw = v.Value
		case *ast.IntValue:
			raw = v.Value
		default:
			return nil
		}
		parsed, err := u256.Parse(raw)
		if err != nil {
			return nil
		}
		return parsed
	},
})

var showType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Show",
	Description: "Current snapshot of an indexed show",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(uint256Type),
		},
		"name": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
		},
		"description": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
		},
		"location": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
		},
		"eventTime": &graphql.Field{
			Type:        graphql.NewNonNull(uint256Type),
			Description: "Start time as a unix timestamp",
		},
		"ticketPrice": &graphql.Field{
			Type:        graphql.NewNonNull(uint256Type),
			Description: "Price in the smallest unit (18 decimals)",
		},
		"maxTickets": &graphql.Field{
			Type: graphql.NewNonNull(uint256Type),
		},
		"soldTickets": &graphql.Field{
			Type: graphql.NewNonNull(uint256Type),
		},
		"isActive": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
		},
		"organizer": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
		},
		"createdAt": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.String),
			Description: "RFC 3339 timestamp",
		},
	},
})

func showToMap(s *storage.ShowSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"id":          s.ID,
		"name":        s.Name,
		"description": s.Description,
		"location":    s.Location,
		"eventTime":   s.EventTime,
		"ticketPrice": s.TicketPrice,
		"maxTickets":  s.MaxTickets,
		"soldTickets": s.SoldTickets,
		"isActive":    s.IsActive,
		"organizer":   s.Organizer,
		"createdAt":   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
