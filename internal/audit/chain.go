package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// GenesisHash is the prev_hash of the first entry of every log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// maxLine bounds a single JSONL record.
const maxLine = 1 << 20

// HashLine returns "sha256:<hex>" of line, without its newline.
func HashLine(line []byte) string {
	sum := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// scanLines calls fn with each raw line of path and its 1-based number.
// The slice is only valid during the call.
func scanLines(path string, fn func(n int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for n := 1; sc.Scan(); n++ {
		if err := fn(n, sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// chainTail returns the hash of the last line of path and the line count.
// A missing or empty file continues from GenesisHash.
func chainTail(path string) (string, int, error) {
	tail, count := GenesisHash, 0
	err := scanLines(path, func(n int, line []byte) error {
		tail, count = HashLine(line), n
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return GenesisHash, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("audit: read existing log: %w", err)
	}
	return tail, count, nil
}

// VerifyResult is the outcome of walking a log's hash chain.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Runs      int    `json:"runs"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// brokenLink marks where a chain stops verifying.
type brokenLink struct {
	line int
	msg  string
}

func (b *brokenLink) Error() string { return b.msg }

// Verify walks the log at path and stops at the first line that does not
// carry the hash of its predecessor or whose step does not increase within
// its run.
func Verify(path string) VerifyResult {
	want := GenesisHash
	steps := map[string]int{}
	total := 0

	err := scanLines(path, func(n int, line []byte) error {
		var e AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return &brokenLink{n, fmt.Sprintf("parse error: %v", err)}
		}
		switch {
		case e.PrevHash == want:
		case n == 1:
			return &brokenLink{n, fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", e.PrevHash)}
		default:
			return &brokenLink{n, fmt.Sprintf("hash mismatch: expected %s, got %s", want, e.PrevHash)}
		}
		if last, ok := steps[e.RunID]; ok && e.Step <= last {
			return &brokenLink{n, fmt.Sprintf("run %s: step %d after step %d", e.RunID, e.Step, last)}
		}
		steps[e.RunID] = e.Step
		want = HashLine(line)
		total = n
		return nil
	})

	var broken *brokenLink
	switch {
	case errors.As(err, &broken):
		return VerifyResult{Error: broken.msg, ErrorLine: broken.line}
	case err != nil:
		return VerifyResult{Error: err.Error()}
	}
	return VerifyResult{Valid: true, Lines: total, Runs: len(steps)}
}
