package audit

// EvidenceField is one observed (variable, state) pair.
type EvidenceField struct {
	Variable string `json:"var"`
	State    string `json:"state"`
}

// MembershipField is one fuzzy membership degree.
type MembershipField struct {
	Label  string  `json:"label"`
	Degree float64 `json:"degree"`
}

// AuditEntry is one line in the hash-chained JSONL audit log.
// All fields are structs or slices (no map[string]any) to guarantee
// deterministic json.Marshal output for reproducible hashing.
type AuditEntry struct {
	Timestamp   string            `json:"ts"`
	RunID       string            `json:"run_id"`
	Step        int               `json:"step"`
	Evidence    []EvidenceField   `json:"evidence"`
	Raw         float64           `json:"raw"`
	Probability float64           `json:"probability"`
	Label       string            `json:"label"`
	Memberships []MembershipField `json:"memberships"`
	Alarm       bool              `json:"alarm,omitempty"`
	ConfigHash  string            `json:"config_hash"`
	PrevHash    string            `json:"prev_hash"`
}
