package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

type relationTable struct {
	table  string
	owner  string
	member string
}

var relationTables = map[domain.Relation]relationTable{
	domain.RelationOfficerDivisions:  {table: "cad.officer_divisions", owner: "officer_id", member: "division_id"},
	domain.RelationVehicleFlags:      {table: "cad.vehicle_flags", owner: "vehicle_id", member: "flag_id"},
	domain.RelationCitizenFlags:      {table: "cad.citizen_flags", owner: "citizen_id", member: "flag_id"},
	domain.RelationCallAssignedUnits: {table: "cad.call_assigned_units", owner: "call_id", member: "unit_id"},
	domain.RelationCallDepartments:   {table: "cad.call_departments", owner: "call_id", member: "department_id"},
	domain.RelationCallDivisions:     {table: "cad.call_divisions", owner: "call_id", member: "division_id"},
}

// RelationRepository implements port.RelationStore over the join tables.
type RelationRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewRelationRepository(exec pgExecutor) *RelationRepository {
	return &RelationRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func lookupRelation(relation domain.Relation) (relationTable, error) {
	t, ok := relationTables[relation]
	if !ok {
		return relationTable{}, fmt.Errorf("unknown relation %q", relation)
	}
	return t, nil
}

func (r *RelationRepository) ListRelated(ctx context.Context, relation domain.Relation, ownerID string) ([]string, error) {
	t, err := lookupRelation(relation)
	if err != nil {
		return nil, err
	}

	stmt, args, err := r.builder.Select(t.member).
		From(t.table).
		Where(squirrel.Eq{t.owner: ownerID}).
		OrderBy(t.member).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s sql: %w", relation, err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", relation, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", relation, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", relation, err)
	}
	return ids, nil
}

// ApplyRelationOps issues at most one DELETE for the disconnects and one
// INSERT for the connects. Connecting an existing member is a no-op.
func (r *RelationRepository) ApplyRelationOps(ctx context.Context, relation domain.Relation, ownerID string, ops []domain.RelationOp) error {
	if len(ops) == 0 {
		return nil
	}
	t, err := lookupRelation(relation)
	if err != nil {
		return err
	}

	disconnect := make([]string, 0)
	connect := make([]string, 0)
	for _, op := range ops {
		switch op.Kind {
		case domain.RelationDisconnect:
			disconnect = append(disconnect, op.ID)
		case domain.RelationConnect:
			connect = append(connect, op.ID)
		}
	}

	if len(disconnect) > 0 {
		stmt, args, err := r.builder.Delete(t.table).
			Where(squirrel.Eq{t.owner: ownerID, t.member: disconnect}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build disconnect %s sql: %w", relation, err)
		}
		if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("disconnect %s: %w", relation, err)
		}
	}

	if len(connect) > 0 {
		insert := r.builder.Insert(t.table).Columns(t.owner, t.member)
		for _, id := range connect {
			insert = insert.Values(ownerID, id)
		}
		stmt, args, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build connect %s sql: %w", relation, err)
		}
		if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
			return writeErr(err, "connect "+string(relation))
		}
	}
	return nil
}

var _ port.RelationStore = (*RelationRepository)(nil)
