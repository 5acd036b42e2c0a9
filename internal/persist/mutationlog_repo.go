package persist

import (
	"context"
	"fmt"
)

// MutationRow is one appended hierarchy-mutation journal entry.
type MutationRow struct {
	Cycle    uint64
	Seq      int
	Op       string // node_spawned, child_added, child_removed, parent_cleared, subtree_destroyed
	ParentID uint32
	ChildIDs []uint32
}

// MutationLogRepo appends the hierarchy mutation journal.
type MutationLogRepo struct {
	db *DB
}

func NewMutationLogRepo(db *DB) *MutationLogRepo {
	return &MutationLogRepo{db: db}
}

// Append atomically writes a batch of journal rows in a single
// transaction. If it fails the whole batch is dropped; the journal is
// diagnostic, not authoritative.
func (r *MutationLogRepo) Append(ctx context.Context, runLabel string, rows []MutationRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("mutation log begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		childIDs := make([]int64, len(row.ChildIDs))
		for i, id := range row.ChildIDs {
			childIDs[i] = int64(id)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO hierarchy_mutations (run_label, cycle, seq, op, parent_id, child_ids)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			runLabel, int64(row.Cycle), row.Seq, row.Op, int64(row.ParentID), childIDs,
		); err != nil {
			return fmt.Errorf("mutation log insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}
