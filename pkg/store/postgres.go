package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the postgres migrate driver used by NewWithSourceInstance
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql, used by golang-migrate
)

//go:embed migrations
var migrationsFS embed.FS

// Postgres is the production WorkflowStore, backed by a pgx connection
// pool. Schema is applied with golang-migrate against embedded SQL files,
// mirroring the teacher's pkg/database/client.go wiring.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL, runs pending migrations, and returns
// a ready Postgres store.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func runMigrations(databaseURL string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

func (p *Postgres) UpsertAgentState(ctx context.Context, row AgentStateRow) error {
	snapshot, err := json.Marshal(row.ContextSnapshot)
	if err != nil {
		return fmt.Errorf("marshal context_snapshot: %w", err)
	}
	checkpoints, err := json.Marshal(row.Checkpoints)
	if err != nil {
		return fmt.Errorf("marshal checkpoints: %w", err)
	}

	const q = `
INSERT INTO agent_states
	(agent_id, template_id, kind, lifecycle, execution_count, error_count,
	 created_at, last_updated, context_snapshot, checkpoints, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (agent_id) DO UPDATE SET
	template_id = EXCLUDED.template_id,
	kind = EXCLUDED.kind,
	lifecycle = EXCLUDED.lifecycle,
	execution_count = EXCLUDED.execution_count,
	error_count = EXCLUDED.error_count,
	last_updated = EXCLUDED.last_updated,
	context_snapshot = EXCLUDED.context_snapshot,
	checkpoints = EXCLUDED.checkpoints,
	is_active = EXCLUDED.is_active`

	_, err = p.pool.Exec(ctx, q,
		row.AgentID, row.TemplateID, row.Kind, row.Lifecycle, row.ExecutionCount, row.ErrorCount,
		row.CreatedAt, row.LastUpdated, snapshot, checkpoints, row.IsActive)
	if err != nil {
		return fmt.Errorf("upsert agent_state: %w", err)
	}
	return nil
}

func (p *Postgres) LoadAgentState(ctx context.Context, agentID string) (*AgentStateRow, error) {
	const q = `
SELECT agent_id, template_id, kind, lifecycle, execution_count, error_count,
       created_at, last_updated, context_snapshot, checkpoints, is_active
FROM agent_states WHERE agent_id = $1`

	var row AgentStateRow
	var snapshot, checkpoints []byte
	err := p.pool.QueryRow(ctx, q, agentID).Scan(
		&row.AgentID, &row.TemplateID, &row.Kind, &row.Lifecycle, &row.ExecutionCount, &row.ErrorCount,
		&row.CreatedAt, &row.LastUpdated, &snapshot, &checkpoints, &row.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agent_state: %w", err)
	}
	if err := json.Unmarshal(snapshot, &row.ContextSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal context_snapshot: %w", err)
	}
	if err := json.Unmarshal(checkpoints, &row.Checkpoints); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoints: %w", err)
	}
	return &row, nil
}

func (p *Postgres) UpsertWorkflow(ctx context.Context, row WorkflowRow) error {
	const q = `
INSERT INTO workflows (workflow_id, project_type, description, created_at, owner_user_id, session_id, status, phases)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (workflow_id) DO UPDATE SET
	status = EXCLUDED.status,
	phases = EXCLUDED.phases`

	_, err := p.pool.Exec(ctx, q,
		row.WorkflowID, row.ProjectType, row.Description, row.CreatedAt,
		row.OwnerUserID, row.SessionID, row.Status, row.Phases)
	if err != nil {
		return fmt.Errorf("upsert workflow: %w", err)
	}
	return nil
}

func (p *Postgres) LoadWorkflow(ctx context.Context, workflowID string) (*WorkflowRow, error) {
	const q = `
SELECT workflow_id, project_type, description, created_at, owner_user_id, session_id, status, phases
FROM workflows WHERE workflow_id = $1`

	var row WorkflowRow
	err := p.pool.QueryRow(ctx, q, workflowID).Scan(
		&row.WorkflowID, &row.ProjectType, &row.Description, &row.CreatedAt,
		&row.OwnerUserID, &row.SessionID, &row.Status, &row.Phases)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	return &row, nil
}

func (p *Postgres) AppendAgentExecution(ctx context.Context, rec AgentExecutionRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const q = `
INSERT INTO agent_executions (agent_id, session_id, input, output, status, error, started_at, completed_at, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = p.pool.Exec(ctx, q,
		rec.AgentID, rec.SessionID, rec.Input, rec.Output, rec.Status, rec.Error,
		rec.StartedAt, rec.CompletedAt, metadata)
	if err != nil {
		return fmt.Errorf("append agent_execution: %w", err)
	}
	return nil
}

func (p *Postgres) QueryActiveAgents(ctx context.Context) ([]AgentStateRow, error) {
	const q = `
SELECT agent_id, template_id, kind, lifecycle, execution_count, error_count,
       created_at, last_updated, context_snapshot, checkpoints, is_active
FROM agent_states WHERE is_active = true`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query active agents: %w", err)
	}
	defer rows.Close()

	var out []AgentStateRow
	for rows.Next() {
		var row AgentStateRow
		var snapshot, checkpoints []byte
		if err := rows.Scan(
			&row.AgentID, &row.TemplateID, &row.Kind, &row.Lifecycle, &row.ExecutionCount, &row.ErrorCount,
			&row.CreatedAt, &row.LastUpdated, &snapshot, &checkpoints, &row.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan active agent: %w", err)
		}
		_ = json.Unmarshal(snapshot, &row.ContextSnapshot)
		_ = json.Unmarshal(checkpoints, &row.Checkpoints)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
