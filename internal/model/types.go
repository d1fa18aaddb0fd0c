package model

import "time"

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// CurrentVersion stamps records written by this build.
func CurrentVersion() VersionedRecord {
	return VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// NetworkRecord is the persisted form of a trained Hopfield network. Weights
// are stored for external consumers; restoring retrains from the adjacency.
type NetworkRecord struct {
	VersionedRecord
	ID        string       `json:"id"`
	RunID     string       `json:"run_id,omitempty"`
	Iteration int          `json:"iteration"`
	Builder   string       `json:"builder,omitempty"`
	Nodes     int          `json:"nodes"`
	Patterns  [][]int      `json:"patterns"`
	Edges     []EdgeRecord `json:"edges"`
}

type EdgeRecord struct {
	I      int     `json:"i"`
	J      int     `json:"j"`
	Weight float64 `json:"weight"`
}

// RunRecord summarizes one optimizer run and its histories.
type RunRecord struct {
	VersionedRecord
	ID            string    `json:"id"`
	Seed          int64     `json:"seed"`
	Chain         int       `json:"chain"`
	Alpha         float64   `json:"alpha"`
	Beta          float64   `json:"beta"`
	Acceptance    string    `json:"acceptance"`
	Proposal      string    `json:"proposal"`
	MovePolicy    string    `json:"move_policy,omitempty"`
	MaxIter       int       `json:"max_iter"`
	MovesPerIter  int       `json:"moves_per_iter"`
	EdgeCount     int       `json:"edge_count"`
	BestScore     float64   `json:"best_score"`
	BestNetworkID string    `json:"best_network_id"`
	Iterations    int       `json:"iterations"`
	Accepted      int       `json:"accepted"`
	Rejected      int       `json:"rejected"`
	Performance   []float64 `json:"performance"`
	Cost          []float64 `json:"cost"`
	InGroup       []float64 `json:"in_group"`
	CreatedAt     time.Time `json:"created_at"`
}
