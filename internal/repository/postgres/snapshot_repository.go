package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Replace swaps the (tenant, date) snapshot of one table inside a single
// transaction. A transaction-scoped advisory lock serializes concurrent runs
// for the same key; on any failure the previous snapshot survives.
func (r *snapshotRepository) Replace(ctx context.Context, table repository.SnapshotTable, key domain.SnapshotKey, rows [][]interface{}, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
	}

	inserted := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		lockKey := table.Name + "|" + key.String()
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("acquire snapshot lock: %w", err)
		}

		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND as_of_date = $2`, table.Name)
		if _, err := tx.ExecContext(ctx, deleteQuery, key.TenantID, key.Date()); err != nil {
			return fmt.Errorf("delete previous snapshot: %w", err)
		}

		for start := 0; start < len(rows); start += batchSize {
			end := start + batchSize
			if end > len(rows) {
				end = len(rows)
			}

			query, args := buildSnapshotInsert(table, key, rows[start:end])
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("insert batch at row %d: %w", start, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				n = int64(end - start)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func buildSnapshotInsert(table repository.SnapshotTable, key domain.SnapshotKey, rows [][]interface{}) (string, []interface{}) {
	width := len(table.Columns) + 2
	columns := append([]string{"tenant_id", "as_of_date"}, table.Columns...)

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table.Name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(rows)*width)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < width; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*width+j+1)
		}
		sb.WriteString(")")

		args = append(args, key.TenantID, key.Date())
		for _, v := range row {
			args = append(args, pgValue(v))
		}
	}
	return sb.String(), args
}

func pgValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		if val == nil {
			val = []string{}
		}
		return pq.Array(val)
	default:
		return v
	}
}
