// Package compiled implements the binary compiled-plan/compiled-schema
// container: a 4-byte magic, a length-prefixed gob payload, and a
// typed error when a file's embedded schema version doesn't match the
// version this binary understands. gob with length-prefixed framing is
// the same binary-container convention used elsewhere in this codebase.
package compiled

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/alexchoi0/blueprint/internal/optimizer"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// SchemaVersion is the monotonic format version embedded in every
// compiled container. Bumping it invalidates every previously compiled
// file on load.
const SchemaVersion = 1

var planMagic = [4]byte{'B', 'P', 0x00, 0x01}
var schemaMagic = [4]byte{'B', 'P', 'S', 0x01}

// VersionMismatchError reports that a compiled file's embedded schema
// version does not match SchemaVersion.
type VersionMismatchError struct {
	Found    int
	Expected int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("compiled file schema version %d does not match expected %d", e.Found, e.Expected)
}

// Metadata optionally embeds the originating script alongside a compiled
// plan, so a compiled file can be rendered back to text without access
// to the original source file on disk.
type Metadata struct {
	SourceFile    string
	SourceContent string
}

// PlanMetadata is the full envelope persisted for a compiled plan.
type PlanMetadata struct {
	SchemaVersion    int
	SourceHash       string
	CompiledAt       int64
	OptimizationLevel optimizer.Level
	Plan             *plan.Plan
	Metadata         *Metadata
}

// CompiledPlan wraps the decoded envelope; ToBytes and Save always write
// it under the compiled-plan magic.
type CompiledPlan struct {
	PlanMetadata
}

// NewCompiledPlan builds a CompiledPlan ready to Save, stamping the
// current SchemaVersion and a caller-supplied compiledAt (unix seconds -
// passed in rather than computed here, since this package may not call
// time.Now() during a deterministic replay).
func NewCompiledPlan(p *plan.Plan, sourceHash string, level optimizer.Level, compiledAt int64, meta *Metadata) *CompiledPlan {
	return &CompiledPlan{PlanMetadata{
		SchemaVersion:     SchemaVersion,
		SourceHash:        sourceHash,
		CompiledAt:        compiledAt,
		OptimizationLevel: level,
		Plan:              p,
		Metadata:          meta,
	}}
}

// ToBytes encodes the container: magic, then a 4-byte big-endian length
// prefix, then the gob-encoded PlanMetadata.
func (c *CompiledPlan) ToBytes() ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(c.PlanMetadata); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(planMagic[:])
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(payload.Len()))
	out.Write(lenBuf[:])
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

// FromBytes decodes a container previously produced by ToBytes, failing
// with a *VersionMismatchError if the embedded schema version doesn't
// match what this build understands.
func FromBytes(data []byte) (*CompiledPlan, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], planMagic[:]) {
		return nil, fmt.Errorf("not a compiled plan file: bad magic")
	}
	length := binary.BigEndian.Uint32(data[4:8])
	if uint32(len(data)-8) < length {
		return nil, fmt.Errorf("truncated compiled plan file: expected %d payload bytes, have %d", length, len(data)-8)
	}

	var pm PlanMetadata
	if err := gob.NewDecoder(bytes.NewReader(data[8 : 8+length])).Decode(&pm); err != nil {
		return nil, err
	}
	if pm.SchemaVersion != SchemaVersion {
		return nil, &VersionMismatchError{Found: pm.SchemaVersion, Expected: SchemaVersion}
	}
	return &CompiledPlan{pm}, nil
}

// Save writes the encoded container to path.
func (c *CompiledPlan) Save(path string) error {
	data, err := c.ToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads and decodes a compiled plan file from path.
func Load(path string) (*CompiledPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(data)
}

// ToText renders the compiled plan's metadata and its underlying plan as
// human-readable text, reusing the plan exporter's one-line-per-op
// summary format.
func (c *CompiledPlan) ToText(render func(*plan.Plan) string) string {
	header := fmt.Sprintf("schema_version=%d source_hash=%s compiled_at=%d optimization=%s\n",
		c.SchemaVersion, c.SourceHash, c.CompiledAt, c.OptimizationLevel)
	return header + render(c.Plan)
}
