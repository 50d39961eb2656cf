package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	"github.com/db2api/gateway/pkg/apperrors"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/models"
)

// fakeConnectionRepository is an in-memory ConnectionRepository.
type fakeConnectionRepository struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*models.Connection
}

func newFakeConnectionRepository() *fakeConnectionRepository {
	return &fakeConnectionRepository{conns: make(map[uuid.UUID]*models.Connection)}
}

func (f *fakeConnectionRepository) Create(ctx context.Context, c *models.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.conns {
		if existing.Name == c.Name {
			return apperrors.ErrConflict
		}
	}
	c.ID = uuid.New()
	cp := *c
	f.conns[c.ID] = &cp
	return nil
}

func (f *fakeConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnectionRepository) List(ctx context.Context) ([]*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Connection
	for _, c := range f.conns {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeConnectionRepository) Update(ctx context.Context, c *models.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conns[c.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *c
	f.conns[c.ID] = &cp
	return nil
}

func (f *fakeConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conns[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.conns, id)
	return nil
}

// fakeDefinitionRepository is an in-memory APIDefinitionRepository.
type fakeDefinitionRepository struct {
	mu   sync.Mutex
	defs []*models.APIDefinition
}

func (f *fakeDefinitionRepository) Create(ctx context.Context, d *models.APIDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = uuid.New()
	cp := *d
	f.defs = append(f.defs, &cp)
	return nil
}

func (f *fakeDefinitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.defs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeDefinitionRepository) List(ctx context.Context) ([]*models.APIDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.APIDefinition, 0, len(f.defs))
	for _, d := range f.defs {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeDefinitionRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*models.APIDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.APIDefinition
	for _, d := range f.defs {
		if d.ConnectionID == connectionID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDefinitionRepository) FindByTable(ctx context.Context, tableName, apiType string) (*models.APIDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.defs {
		if strings.EqualFold(d.TableName, tableName) && strings.EqualFold(d.APIType, apiType) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeDefinitionRepository) Update(ctx context.Context, d *models.APIDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.defs {
		if existing.ID == d.ID {
			cp := *d
			f.defs[i] = &cp
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeDefinitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.defs {
		if d.ID == id {
			f.defs = append(f.defs[:i], f.defs[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// fakeClientRepository is an in-memory ClientRepository.
type fakeClientRepository struct {
	mu      sync.Mutex
	clients map[string]*models.Client
}

func newFakeClientRepository() *fakeClientRepository {
	return &fakeClientRepository{clients: make(map[string]*models.Client)}
}

func (f *fakeClientRepository) Create(ctx context.Context, c *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c.ClientID]; ok {
		return apperrors.ErrConflict
	}
	c.ID = uuid.New()
	cp := *c
	f.clients[c.ClientID] = &cp
	return nil
}

func (f *fakeClientRepository) GetByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[clientID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClientRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Client
	for _, c := range f.clients {
		if c.OrganizationID == orgID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, c := range f.clients {
		if c.ID == id {
			delete(f.clients, key)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// fakeExecutor records statements and returns canned results.
type fakeExecutor struct {
	mu        sync.Mutex
	queries   []string
	execs     []string
	params    [][]any
	queryRows []map[string]any
	execCount int64
	err       error
}

func (e *fakeExecutor) Query(ctx context.Context, sqlText string, params []any) (*datasource.QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, sqlText)
	e.params = append(e.params, params)
	if e.err != nil {
		return nil, e.err
	}
	return &datasource.QueryResult{Rows: e.queryRows}, nil
}

func (e *fakeExecutor) Exec(ctx context.Context, sqlText string, params []any) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.execs = append(e.execs, sqlText)
	e.params = append(e.params, params)
	if e.err != nil {
		return 0, e.err
	}
	return e.execCount, nil
}

func (e *fakeExecutor) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (e *fakeExecutor) Close() error { return nil }

func (e *fakeExecutor) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = nil
	e.execs = nil
	e.params = nil
	e.queryRows = nil
	e.execCount = 1
	e.err = nil
}

func (e *fakeExecutor) lastStatement() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.execs) > 0 {
		return e.execs[len(e.execs)-1]
	}
	if len(e.queries) > 0 {
		return e.queries[len(e.queries)-1]
	}
	return ""
}

type fakePool struct{}

func (p *fakePool) Ping(ctx context.Context) error { return nil }
func (p *fakePool) Close() error                   { return nil }
func (p *fakePool) Type() string                   { return testDriver }

type fakeIntrospector struct {
	tables  []string
	columns []string
}

func (i *fakeIntrospector) ListTables(ctx context.Context) ([]string, error) { return i.tables, nil }
func (i *fakeIntrospector) ListColumns(ctx context.Context, table string) ([]string, error) {
	return i.columns, nil
}
func (i *fakeIntrospector) Close() error { return nil }

const testDriver = "fakedb"

var (
	registerDriverOnce sync.Once
	sharedExecutor     = &fakeExecutor{execCount: 1}
	sharedIntrospector = &fakeIntrospector{
		tables:  []string{"orders", "customers"},
		columns: []string{"id", "name"},
	}
)

// registerTestDriver installs an in-memory driver into the adapter registry.
func registerTestDriver() {
	registerDriverOnce.Do(func() {
		datasource.Register(datasource.Registration{
			Info: datasource.AdapterInfo{Driver: testDriver, DisplayName: "Fake"},
			TesterFactory: func(ctx context.Context, cfg datasource.ConnConfig) (datasource.ConnectionTester, error) {
				return fakeTester{}, nil
			},
			IntrospectorFactory: func(ctx context.Context, cfg datasource.ConnConfig) (datasource.SchemaIntrospector, error) {
				return sharedIntrospector, nil
			},
			PoolFactory: func(ctx context.Context, cfg datasource.ConnConfig, poolCfg datasource.PoolConfig) (datasource.PoolConnector, error) {
				return &fakePool{}, nil
			},
			ExecutorFactory: func(pool datasource.PoolConnector) (datasource.QueryExecutor, error) {
				return sharedExecutor, nil
			},
		})
	})
}

type fakeTester struct{}

func (fakeTester) TestConnection(ctx context.Context) error { return nil }
func (fakeTester) Close() error                             { return nil }

// testEnv wires real services over in-memory repositories and the fake
// driver.
type testEnv struct {
	connRepo   *fakeConnectionRepository
	defRepo    *fakeDefinitionRepository
	clientRepo *fakeClientRepository
	cipher     *crypto.SecretCipher
	conns      *ConnectionService
	defs       *APIDefinitionService
	executor   *QueryExecutorService
	dispatcher *DispatcherService
	cache      *datasource.ResourceCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registerTestDriver()
	sharedExecutor.reset()

	cipher, err := crypto.NewSecretCipher("test-secret")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	connRepo := newFakeConnectionRepository()
	defRepo := &fakeDefinitionRepository{}
	clientRepo := newFakeClientRepository()
	cache := datasource.NewResourceCache(datasource.PoolConfig{MaxConns: 2}, zap.NewNop())
	t.Cleanup(func() { _ = cache.Close() })

	conns := NewConnectionService(connRepo, cipher, cache, zap.NewNop())
	defs := NewAPIDefinitionService(defRepo, connRepo, zap.NewNop())
	executor := NewQueryExecutorService(conns, zap.NewNop())
	dispatcher := NewDispatcherService(defs, executor)

	return &testEnv{
		connRepo:   connRepo,
		defRepo:    defRepo,
		clientRepo: clientRepo,
		cipher:     cipher,
		conns:      conns,
		defs:       defs,
		executor:   executor,
		dispatcher: dispatcher,
		cache:      cache,
	}
}

// addConnection stores a descriptor through the service so the password is
// encrypted the normal way.
func (env *testEnv) addConnection(t *testing.T) *models.Connection {
	t.Helper()
	conn := &models.Connection{
		Name:     "test-" + uuid.NewString(),
		URL:      "fake://localhost/db",
		Username: "user",
		Password: "pw",
		Driver:   testDriver,
	}
	if err := env.conns.Create(context.Background(), conn); err != nil {
		t.Fatalf("Create connection: %v", err)
	}
	return conn
}

// addDefinition stores an API definition bound to conn.
func (env *testEnv) addDefinition(t *testing.T, conn *models.Connection, table, apiType, ops, cols string) *models.APIDefinition {
	t.Helper()
	def := &models.APIDefinition{
		TableName:         table,
		APIType:           apiType,
		AllowedOperations: ops,
		IncludedColumns:   cols,
		ConnectionID:      conn.ID,
	}
	if err := env.defs.Create(context.Background(), def); err != nil {
		t.Fatalf("Create definition: %v", err)
	}
	return def
}
