package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/models"
)

type countingRefresher struct {
	calls int
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls++
	return nil
}

func TestDefinitionCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	conn := env.addConnection(t)

	cases := []struct {
		name string
		def  models.APIDefinition
	}{
		{"missing table", models.APIDefinition{APIType: "REST", ConnectionID: conn.ID}},
		{"bad api type", models.APIDefinition{TableName: "orders", APIType: "SOAP", ConnectionID: conn.ID}},
		{"bad operation", models.APIDefinition{TableName: "orders", APIType: "REST", AllowedOperations: "GET,PATCH", ConnectionID: conn.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := tc.def
			err := env.defs.Create(context.Background(), &def)
			assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
}

func TestDefinitionCreateRequiresExistingConnection(t *testing.T) {
	env := newTestEnv(t)

	err := env.defs.Create(context.Background(), &models.APIDefinition{
		TableName:    "orders",
		APIType:      models.APITypeREST,
		ConnectionID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDefinitionMutationsTriggerSchemaRefresh(t *testing.T) {
	env := newTestEnv(t)
	conn := env.addConnection(t)

	refresher := &countingRefresher{}
	env.defs.SetRefresher(refresher)

	def := env.addDefinition(t, conn, "orders", models.APITypeGraphQL, "GET", "")
	assert.Equal(t, 1, refresher.calls)

	def.AllowedOperations = "GET,PUT"
	require.NoError(t, env.defs.Update(context.Background(), def))
	assert.Equal(t, 2, refresher.calls)

	require.NoError(t, env.defs.Delete(context.Background(), def.ID))
	assert.Equal(t, 3, refresher.calls)
}

func TestDefinitionFailedMutationDoesNotRefresh(t *testing.T) {
	env := newTestEnv(t)

	refresher := &countingRefresher{}
	env.defs.SetRefresher(refresher)

	err := env.defs.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, 0, refresher.calls)
}

func TestDefinitionFindByTable(t *testing.T) {
	env := newTestEnv(t)
	conn := env.addConnection(t)
	first := env.addDefinition(t, conn, "orders", models.APITypeREST, "GET", "")
	env.addDefinition(t, conn, "ORDERS", models.APITypeREST, "GET,PUT", "")

	found, err := env.defs.FindByTable(context.Background(), "Orders", "rest")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID, "oldest matching definition wins")
}
