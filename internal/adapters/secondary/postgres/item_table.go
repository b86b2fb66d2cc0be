package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	output "spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

// itemTable stores wire items as JSONB, one row per (tenant_id, item_id).
// Index queries run over JSONB expressions that mirror the schema's indexes.
type itemTable struct {
	pool   *pgxpool.Pool
	schema output.TableSchema
	table  string
}

// NewItemTable creates a Table backed by PostgreSQL.
func NewItemTable(pool *pgxpool.Pool, schema output.TableSchema) output.Table {
	return &itemTable{
		pool:   pool,
		schema: schema,
		table:  pgx.Identifier{schema.Name}.Sanitize(),
	}
}

// EnsureSchema creates the table and its index expressions if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema output.TableSchema) error {
	for _, stmt := range schemaStatements(schema) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema %s: %w", schema.Name, err)
		}
	}
	return nil
}

func schemaStatements(schema output.TableSchema) []string {
	table := pgx.Identifier{schema.Name}.Sanitize()
	stmts := []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			tenant_id  TEXT  NOT NULL,
			item_id    TEXT  NOT NULL,
			item       JSONB NOT NULL,
			PRIMARY KEY (tenant_id, item_id)
		)`, table)}

	for _, idx := range schema.Indexes {
		cols := []string{attrExpr(idx.PartitionAttr)}
		if idx.SortAttr != "" {
			cols = append(cols, attrExpr(idx.SortAttr))
		}
		name := pgx.Identifier{strings.ToLower(schema.Name + "_" + idx.Name)}.Sanitize()
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s ((%s))",
			name, table, strings.Join(cols, "), ("),
		))
	}
	return stmts
}

// attrExpr selects the string member of a top-level attribute.
func attrExpr(attr string) string {
	return fmt.Sprintf("(item -> %s ->> 'S')", quoteLiteral(attr))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (r *itemTable) Get(ctx context.Context, key domain.Key) (codec.Item, error) {
	query := fmt.Sprintf(`SELECT item FROM %s WHERE tenant_id = $1 AND item_id = $2`, r.table)

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, key.TenantID, key.ID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeError("get item", err)
	}
	return unmarshalItem(raw)
}

func (r *itemTable) Put(ctx context.Context, item codec.Item) error {
	tenantID := item.StringAttr(domain.AttrTenantID)
	id := item.StringAttr(r.schema.IDAttr)
	if tenantID == "" || id == "" {
		return fmt.Errorf("%w: item lacks %s or %s", domain.ErrInvalidPayload, domain.AttrTenantID, r.schema.IDAttr)
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, item_id, item)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, item_id) DO NOTHING
	`, r.table)

	result, err := r.pool.Exec(ctx, query, tenantID, id, raw)
	if err != nil {
		return storeError("put item", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConditionFailed
	}
	return nil
}

// Update merges the assignments into the stored object with jsonb ||, which
// replaces whole top-level attributes in one statement.
func (r *itemTable) Update(ctx context.Context, key domain.Key, op update.Op) error {
	patch := make(codec.Item, len(op.Set))
	for _, a := range op.Set {
		patch[a.Name] = a.Value
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	var query string
	args := []interface{}{key.TenantID, key.ID, raw}
	if op.Condition == update.ItemExists {
		query = fmt.Sprintf(`
			UPDATE %s SET item = item || $3::jsonb
			WHERE tenant_id = $1 AND item_id = $2
		`, r.table)
	} else {
		seed, err := json.Marshal(codec.Item{
			domain.AttrTenantID: codec.S(key.TenantID),
			r.schema.IDAttr:     codec.S(key.ID),
		})
		if err != nil {
			return fmt.Errorf("marshal key: %w", err)
		}
		args = append(args, seed)
		query = fmt.Sprintf(`
			INSERT INTO %[1]s (tenant_id, item_id, item)
			VALUES ($1, $2, $4::jsonb || $3::jsonb)
			ON CONFLICT (tenant_id, item_id) DO UPDATE SET item = %[1]s.item || $3::jsonb
		`, r.table)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storeError("update item", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConditionFailed
	}
	return nil
}

func (r *itemTable) Delete(ctx context.Context, key domain.Key) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND item_id = $2`, r.table)
	if _, err := r.pool.Exec(ctx, query, key.TenantID, key.ID); err != nil {
		return storeError("delete item", err)
	}
	return nil
}

func (r *itemTable) Query(ctx context.Context, q output.Query) ([]codec.Item, error) {
	query, args, err := buildQuery(r.schema, q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("query items", err)
	}
	defer rows.Close()

	var items []codec.Item
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storeError("scan item", err)
		}
		item, err := unmarshalItem(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query items", err)
	}
	return items, nil
}

func buildQuery(schema output.TableSchema, q output.Query) (string, []interface{}, error) {
	idx, ok := schema.Index(q.Index)
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown index %q on %s", domain.ErrValidation, q.Index, schema.Name)
	}

	conditions := []string{attrExpr(idx.PartitionAttr) + " = $1"}
	args := []interface{}{q.PartitionValue}

	if idx.SortAttr != "" {
		switch {
		case q.SortEquals != "":
			conditions = append(conditions, attrExpr(idx.SortAttr)+" = $2")
			args = append(args, q.SortEquals)
		case q.SortPrefix != "":
			conditions = append(conditions, "starts_with("+attrExpr(idx.SortAttr)+", $2)")
			args = append(args, q.SortPrefix)
		}
	}

	query := fmt.Sprintf(
		"SELECT item FROM %s WHERE %s ORDER BY tenant_id, item_id",
		pgx.Identifier{schema.Name}.Sanitize(), strings.Join(conditions, " AND "),
	)
	return query, args, nil
}

func unmarshalItem(raw []byte) (codec.Item, error) {
	var item codec.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: stored item: %v", codec.ErrDecode, err)
	}
	return item, nil
}

// storeError marks connection and server failures as transient. Constraint
// violations are not retryable and pass through unmarked.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
}

var _ output.Table = (*itemTable)(nil)
