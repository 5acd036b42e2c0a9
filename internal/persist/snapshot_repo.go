package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SnapshotNode is one hierarchy node row: stable id, parent id (0 for
// roots), rank within the parent's ordered child list, and payload.
type SnapshotNode struct {
	NodeID   uint32
	ParentID uint32
	Rank     int
	Label    string
	Lifetime int
}

// Snapshot is a full tree capture stamped with the cycle and digest it
// was taken at.
type Snapshot struct {
	RunLabel string
	Cycle    uint64
	Digest   string
	Nodes    []SnapshotNode
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes the snapshot header and all node rows in one transaction.
func (r *SnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var snapshotID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO snapshots (run_label, cycle, digest) VALUES ($1, $2, $3) RETURNING id`,
		snap.RunLabel, int64(snap.Cycle), snap.Digest,
	).Scan(&snapshotID); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}

	for _, n := range snap.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO snapshot_nodes (snapshot_id, node_id, parent_id, child_rank, label, lifetime)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			snapshotID, int64(n.NodeID), int64(n.ParentID), n.Rank, n.Label, n.Lifetime,
		); err != nil {
			return fmt.Errorf("snapshot node %d: %w", n.NodeID, err)
		}
	}

	return tx.Commit(ctx)
}

// LoadLatest returns the most recent snapshot for the run label, or
// (nil, nil) when none exists.
func (r *SnapshotRepo) LoadLatest(ctx context.Context, runLabel string) (*Snapshot, error) {
	snap := &Snapshot{RunLabel: runLabel}
	var snapshotID int64
	var cycle int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, cycle, digest FROM snapshots
		 WHERE run_label = $1 ORDER BY cycle DESC, id DESC LIMIT 1`,
		runLabel,
	).Scan(&snapshotID, &cycle, &snap.Digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot header: %w", err)
	}
	snap.Cycle = uint64(cycle)

	rows, err := r.db.Pool.Query(ctx,
		`SELECT node_id, parent_id, child_rank, label, lifetime
		 FROM snapshot_nodes WHERE snapshot_id = $1
		 ORDER BY parent_id, child_rank, node_id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n SnapshotNode
		var nodeID, parentID int64
		if err := rows.Scan(&nodeID, &parentID, &n.Rank, &n.Label, &n.Lifetime); err != nil {
			return nil, fmt.Errorf("scan snapshot node: %w", err)
		}
		n.NodeID = uint32(nodeID)
		n.ParentID = uint32(parentID)
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot nodes: %w", err)
	}
	return snap, nil
}
