package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/models"
	"github.com/db2api/gateway/pkg/services"
)

const testDriver = "fakedb"

var registerDriverOnce sync.Once

// upstreamErr, when set, makes the fake executor fail every statement.
var upstreamErr error

type fakeExecutor struct{}

func (fakeExecutor) Query(ctx context.Context, sqlText string, params []any) (*datasource.QueryResult, error) {
	if upstreamErr != nil {
		return nil, upstreamErr
	}
	return &datasource.QueryResult{
		Columns: []string{"id", "name"},
		Rows: []map[string]any{
			{"id": int64(1), "name": "widget"},
		},
	}, nil
}

func (fakeExecutor) Exec(ctx context.Context, sqlText string, params []any) (int64, error) {
	if upstreamErr != nil {
		return 0, upstreamErr
	}
	return 1, nil
}

func (fakeExecutor) Placeholder(n int) string { return "$1" }
func (fakeExecutor) Close() error             { return nil }

type fakePool struct{}

func (fakePool) Ping(ctx context.Context) error { return nil }
func (fakePool) Close() error                   { return nil }
func (fakePool) Type() string                   { return testDriver }

func registerTestDriver() {
	registerDriverOnce.Do(func() {
		datasource.Register(datasource.Registration{
			Info: datasource.AdapterInfo{Driver: testDriver, DisplayName: "Fake"},
			TesterFactory: func(ctx context.Context, cfg datasource.ConnConfig) (datasource.ConnectionTester, error) {
				return nil, errors.New("not used")
			},
			IntrospectorFactory: func(ctx context.Context, cfg datasource.ConnConfig) (datasource.SchemaIntrospector, error) {
				return nil, errors.New("not used")
			},
			PoolFactory: func(ctx context.Context, cfg datasource.ConnConfig, poolCfg datasource.PoolConfig) (datasource.PoolConnector, error) {
				return fakePool{}, nil
			},
			ExecutorFactory: func(pool datasource.PoolConnector) (datasource.QueryExecutor, error) {
				return fakeExecutor{}, nil
			},
		})
	})
}

// connRepo is a minimal in-memory connection store.
type connRepo struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*models.Connection
}

func (r *connRepo) Create(ctx context.Context, c *models.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	cp := *c
	r.conns[c.ID] = &cp
	return nil
}

func (r *connRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *connRepo) List(ctx context.Context) ([]*models.Connection, error) { return nil, nil }
func (r *connRepo) Update(ctx context.Context, c *models.Connection) error { return nil }
func (r *connRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }

// defRepo is a minimal in-memory definition store.
type defRepo struct {
	mu   sync.Mutex
	defs []*models.APIDefinition
}

func (r *defRepo) Create(ctx context.Context, d *models.APIDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New()
	cp := *d
	r.defs = append(r.defs, &cp)
	return nil
}

func (r *defRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.APIDefinition, error) {
	return nil, apperrors.ErrNotFound
}

func (r *defRepo) List(ctx context.Context) ([]*models.APIDefinition, error) { return nil, nil }

func (r *defRepo) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*models.APIDefinition, error) {
	return nil, nil
}

func (r *defRepo) FindByTable(ctx context.Context, tableName, apiType string) (*models.APIDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.defs {
		if strings.EqualFold(d.TableName, tableName) && strings.EqualFold(d.APIType, apiType) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *defRepo) Update(ctx context.Context, d *models.APIDefinition) error { return nil }
func (r *defRepo) Delete(ctx context.Context, id uuid.UUID) error            { return nil }

type testEnv struct {
	dispatcher *services.DispatcherService
	connID     uuid.UUID
	defs       *defRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registerTestDriver()
	upstreamErr = nil

	cipher, err := crypto.NewSecretCipher("test-secret")
	require.NoError(t, err)

	conns := &connRepo{conns: make(map[uuid.UUID]*models.Connection)}
	defs := &defRepo{}
	cache := datasource.NewResourceCache(datasource.PoolConfig{MaxConns: 2}, zap.NewNop())
	t.Cleanup(func() { _ = cache.Close() })

	connService := services.NewConnectionService(conns, cipher, cache, zap.NewNop())
	defService := services.NewAPIDefinitionService(defs, conns, zap.NewNop())
	executorService := services.NewQueryExecutorService(connService, zap.NewNop())
	dispatcher := services.NewDispatcherService(defService, executorService)

	conn := &models.Connection{Name: "c", URL: "fake://h/db", Driver: testDriver}
	require.NoError(t, connService.Create(context.Background(), conn))

	return &testEnv{dispatcher: dispatcher, connID: conn.ID, defs: defs}
}

func (env *testEnv) addDefinition(t *testing.T, table, ops string) {
	t.Helper()
	require.NoError(t, env.defs.Create(context.Background(), &models.APIDefinition{
		TableName:         table,
		APIType:           models.APITypeREST,
		AllowedOperations: ops,
		ConnectionID:      env.connID,
	}))
}
