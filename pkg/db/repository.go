package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/operation-engine/pkg/catalog"
)

const repoLogPrefix = "db:repository"

// System user UUID used for created_by/modified_by when no caller is known.
const systemUserID = "00000000-0000-0000-0000-000000000001"

const operationColumns = `id, name, op_key, handler, return_kind, alias, description, display_name, icon,
	entity_param, parameters, content_types, roles, permissions, policies, scenarios,
	status, revision, created, created_by, modified, modified_by`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database access for the operation catalog.
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// WithTx returns a repository whose statements run inside tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{pool: r.pool, q: tx}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// UpsertOperationParams holds parameters for UpsertOperation.
type UpsertOperationParams struct {
	Spec   catalog.OperationSpec
	UserID string
}

// UpsertOperation creates or updates the overload identified by the spec's key.
// Updates bump the revision and re-activate disabled rows.
func (r *Repository) UpsertOperation(ctx context.Context, params UpsertOperationParams) (*Operation, error) {
	spec := params.Spec
	key := OperationKey(spec)
	slog.Info(fmt.Sprintf("%s - UpsertOperation key=%s", repoLogPrefix, key))

	userID := params.UserID
	if userID == "" {
		userID = systemUserID
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s - invalid user id %q: %w", repoLogPrefix, userID, err)
	}

	paramsJSON, err := json.Marshal(spec.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s - marshal parameters: %w", repoLogPrefix, err)
	}
	if spec.Parameters == nil {
		paramsJSON = []byte("[]")
	}
	ret := spec.Return
	if ret == "" {
		ret = "value"
	}

	now := time.Now().UTC()
	row := r.q.QueryRow(ctx,
		`INSERT INTO operations (id, name, op_key, handler, return_kind, alias, description, display_name, icon,
		                         entity_param, parameters, content_types, roles, permissions, policies, scenarios,
		                         created, created_by, modified, modified_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18::uuid, $17, $18::uuid)
		 ON CONFLICT (op_key) DO UPDATE SET
		   name = EXCLUDED.name,
		   handler = EXCLUDED.handler,
		   return_kind = EXCLUDED.return_kind,
		   alias = EXCLUDED.alias,
		   description = EXCLUDED.description,
		   display_name = EXCLUDED.display_name,
		   icon = EXCLUDED.icon,
		   entity_param = EXCLUDED.entity_param,
		   parameters = EXCLUDED.parameters,
		   content_types = EXCLUDED.content_types,
		   roles = EXCLUDED.roles,
		   permissions = EXCLUDED.permissions,
		   policies = EXCLUDED.policies,
		   scenarios = EXCLUDED.scenarios,
		   status = 'active',
		   revision = operations.revision + 1,
		   modified = EXCLUDED.modified,
		   modified_by = EXCLUDED.modified_by
		 RETURNING `+operationColumns,
		uuid.NewString(), spec.Name, key, spec.Handler, ret,
		nullable(spec.Alias), nullable(spec.Description), nullable(spec.DisplayName), nullable(spec.Icon),
		nullable(spec.Entity), paramsJSON,
		nonNil(spec.ContentTypes), nonNil(spec.Roles), nonNil(spec.Permissions), nonNil(spec.Policies), nonNil(spec.Scenarios),
		now, userID)

	return scanOperation(row)
}

// ListOperationsParams holds parameters for ListOperations.
type ListOperationsParams struct {
	// Status filters by status; empty or "all" lists every row.
	Status string
	// Name filters by operation name, case-insensitively.
	Name string
}

// ListOperations lists stored overloads ordered by name then key.
func (r *Repository) ListOperations(ctx context.Context, params ListOperationsParams) ([]Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.Status != "" && params.Status != "all" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Name != "" {
		query += fmt.Sprintf(` AND lower(name) = lower($%d)`, argIdx)
		args = append(args, params.Name)
	}
	query += ` ORDER BY lower(name), op_key`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - list operations failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - iterate operations failed: %w", repoLogPrefix, err)
	}
	return out, nil
}

// ListOperationSpecs returns the active overloads in manifest form.
func (r *Repository) ListOperationSpecs(ctx context.Context) ([]catalog.OperationSpec, error) {
	ops, err := r.ListOperations(ctx, ListOperationsParams{Status: StatusActive})
	if err != nil {
		return nil, err
	}
	specs := make([]catalog.OperationSpec, len(ops))
	for i := range ops {
		specs[i] = ops[i].Spec()
	}
	return specs, nil
}

// SetOperationStatus sets the status of every overload named name and
// returns how many rows changed.
func (r *Repository) SetOperationStatus(ctx context.Context, name, status string) (int64, error) {
	if status != StatusActive && status != StatusDisabled {
		return 0, fmt.Errorf("%s - invalid status %q", repoLogPrefix, status)
	}
	slog.Info(fmt.Sprintf("%s - SetOperationStatus name=%s status=%s", repoLogPrefix, name, status))

	tag, err := r.q.Exec(ctx,
		`UPDATE operations SET status = $2, revision = revision + 1, modified = NOW()
		 WHERE lower(name) = lower($1) AND status <> $2`, name, status)
	if err != nil {
		return 0, fmt.Errorf("%s - update status failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOperations removes every overload named name.
func (r *Repository) DeleteOperations(ctx context.Context, name string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM operations WHERE lower(name) = lower($1)`, name)
	if err != nil {
		return 0, fmt.Errorf("%s - delete operations failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected(), nil
}

func scanOperation(row pgx.Row) (*Operation, error) {
	var o Operation
	var paramsJSON []byte
	err := row.Scan(
		&o.ID, &o.Name, &o.Key, &o.Handler, &o.ReturnKind, &o.Alias, &o.Description, &o.DisplayName, &o.Icon,
		&o.EntityParam, &paramsJSON, &o.ContentTypes, &o.Roles, &o.Permissions, &o.Policies, &o.Scenarios,
		&o.Status, &o.Revision, &o.Created, &o.CreatedBy, &o.Modified, &o.ModifiedBy,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan operation failed: %w", repoLogPrefix, err)
	}
	if err := json.Unmarshal(paramsJSON, &o.Parameters); err != nil {
		return nil, fmt.Errorf("%s - decode parameters of %s: %w", repoLogPrefix, o.Key, err)
	}
	return &o, nil
}
