// Package graphqlapi builds and serves the generated GraphQL schema. The
// schema is derived from the GraphQL-typed API definitions and the live
// column lists of their tables, and is rebuilt whenever definitions change.
package graphqlapi

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/services"
)

// SchemaBuilder regenerates the GraphQL schema from the definition store.
// The published schema is swapped atomically: a failed rebuild leaves the
// previous schema serving.
type SchemaBuilder struct {
	defs       *services.APIDefinitionService
	introspect *services.IntrospectionService
	executor   *services.QueryExecutorService
	logger     *zap.Logger

	schema atomic.Pointer[graphql.Schema]
}

// NewSchemaBuilder creates a builder and publishes the fallback schema so
// Execute works before the first Refresh.
func NewSchemaBuilder(
	defs *services.APIDefinitionService,
	introspect *services.IntrospectionService,
	executor *services.QueryExecutorService,
	logger *zap.Logger,
) (*SchemaBuilder, error) {
	b := &SchemaBuilder{
		defs:       defs,
		introspect: introspect,
		executor:   executor,
		logger:     logger,
	}

	fallback, err := fallbackSchema()
	if err != nil {
		return nil, err
	}
	b.schema.Store(fallback)
	return b, nil
}

// Refresh rebuilds the schema from the current GraphQL definitions and
// publishes it. On failure the previous schema keeps serving and the error
// is returned. Safe for concurrent use with Execute.
func (b *SchemaBuilder) Refresh(ctx context.Context) error {
	schema, err := b.build(ctx)
	if err != nil {
		b.logger.Error("schema rebuild failed", zap.String("error", logging.SanitizeError(err)))
		return err
	}

	b.schema.Store(schema)
	b.logger.Info("published graphql schema")
	return nil
}

// Execute runs a query against the currently published schema.
func (b *SchemaBuilder) Execute(ctx context.Context, query string, variables map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         *b.schema.Load(),
		RequestString:  query,
		VariableValues: variables,
		Context:        ctx,
	})
}

func (b *SchemaBuilder) build(ctx context.Context) (*graphql.Schema, error) {
	all, err := b.defs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	fields := graphql.Fields{}
	seen := make(map[string]bool)
	for _, def := range all {
		if !strings.EqualFold(def.APIType, models.APITypeGraphQL) {
			continue
		}
		// First definition per table wins, matching REST lookup semantics.
		key := strings.ToLower(def.TableName)
		if seen[key] {
			continue
		}
		seen[key] = true

		columns := b.introspect.ListColumns(ctx, def.ConnectionID, def.TableName)
		if len(columns) == 0 {
			b.logger.Warn("skipping table with no introspectable columns",
				zap.String("table", def.TableName),
			)
			continue
		}

		fields[def.TableName] = b.tableField(def, columns)
	}

	if len(fields) == 0 {
		return fallbackSchema()
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})
	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble schema: %w", err)
	}
	return &schema, nil
}

// tableField emits `<table>: [<TypeName>]` with every column as a String.
// The resolver performs a full unfiltered read; column and operation
// allow-lists do not apply on the GraphQL path.
func (b *SchemaBuilder) tableField(def *models.APIDefinition, columns []string) *graphql.Field {
	typeFields := graphql.Fields{}
	for _, col := range columns {
		typeFields[col] = &graphql.Field{Type: graphql.String}
	}

	rowType := graphql.NewObject(graphql.ObjectConfig{
		Name:   typeName(def.TableName),
		Fields: typeFields,
	})

	// Clear the column allow-list so the read returns every column.
	readDef := *def
	readDef.IncludedColumns = ""

	return &graphql.Field{
		Type: graphql.NewList(rowType),
		Resolve: func(p graphql.ResolveParams) (any, error) {
			result, err := b.executor.Read(p.Context, &readDef)
			if err != nil {
				return nil, err
			}
			rows := make([]map[string]any, len(result.Rows))
			for i, row := range result.Rows {
				converted := make(map[string]any, len(row))
				for k, v := range row {
					if v == nil {
						converted[k] = nil
						continue
					}
					converted[k] = fmt.Sprintf("%v", v)
				}
				rows[i] = converted
			}
			return rows, nil
		},
	}
}

// typeName upper-cases the first rune of the table name.
func typeName(table string) string {
	runes := []rune(table)
	if len(runes) == 0 {
		return table
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// fallbackSchema is published when no GraphQL definition yields a usable
// type; a query type needs at least one field to be structurally valid.
func fallbackSchema() (*graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "world", nil
				},
			},
		},
	})
	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return nil, fmt.Errorf("failed to build fallback schema: %w", err)
	}
	return &schema, nil
}
