package compiled

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/optimizer"
	"github.com/alexchoi0/blueprint/internal/plan"
)

func samplePlan() *plan.Plan {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.Print, A: blueprintvalue.LiteralString("hi")}, "script.bp:1")
	return p
}

func TestCompiledPlanRoundTrip(t *testing.T) {
	cp := NewCompiledPlan(samplePlan(), "deadbeef", optimizer.Basic, 1234, &Metadata{SourceFile: "script.bp", SourceContent: "print(\"hi\")"})

	data, err := cp.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	decoded, err := FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if decoded.SourceHash != "deadbeef" {
		t.Errorf("SourceHash = %q, want deadbeef", decoded.SourceHash)
	}
	if decoded.OptimizationLevel != optimizer.Basic {
		t.Errorf("OptimizationLevel = %v, want Basic", decoded.OptimizationLevel)
	}
	if len(decoded.Plan.Ops) != 1 {
		t.Errorf("decoded Plan has %d ops, want 1", len(decoded.Plan.Ops))
	}
	if decoded.Metadata == nil || decoded.Metadata.SourceFile != "script.bp" {
		t.Errorf("Metadata not preserved: %+v", decoded.Metadata)
	}
}

func TestFromBytesRejectsBadMagic(t *testing.T) {
	_, err := FromBytes([]byte("not a compiled plan at all"))
	if err == nil {
		t.Fatalf("FromBytes: expected error for bad magic, got nil")
	}
}

func TestFromBytesRejectsTruncated(t *testing.T) {
	cp := NewCompiledPlan(samplePlan(), "h", optimizer.None, 0, nil)
	data, err := cp.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	_, err = FromBytes(data[:len(data)-5])
	if err == nil {
		t.Fatalf("FromBytes: expected error for truncated payload, got nil")
	}
}

func TestFromBytesRejectsVersionMismatch(t *testing.T) {
	pm := PlanMetadata{SchemaVersion: SchemaVersion + 1, SourceHash: "h", Plan: samplePlan()}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(pm); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out bytes.Buffer
	out.Write(planMagic[:])
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(payload.Len()))
	out.Write(lenBuf[:])
	out.Write(payload.Bytes())

	_, err := FromBytes(out.Bytes())
	verr, ok := err.(*VersionMismatchError)
	if !ok {
		t.Fatalf("FromBytes: err = %v (%T), want *VersionMismatchError", err, err)
	}
	if verr.Found != SchemaVersion+1 || verr.Expected != SchemaVersion {
		t.Errorf("VersionMismatchError = %+v, want Found=%d Expected=%d", verr, SchemaVersion+1, SchemaVersion)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bpc")

	cp := NewCompiledPlan(samplePlan(), "abc123", optimizer.Aggressive, 42, nil)
	if err := cp.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SourceHash != "abc123" || loaded.CompiledAt != 42 {
		t.Errorf("Load() = %+v, want SourceHash=abc123 CompiledAt=42", loaded.PlanMetadata)
	}
}

func TestToTextIncludesHeaderAndRenderedPlan(t *testing.T) {
	cp := NewCompiledPlan(samplePlan(), "hash1", optimizer.Basic, 7, nil)
	out := cp.ToText(func(p *plan.Plan) string { return "RENDERED" })

	if !strings.Contains(out, "hash1") || !strings.Contains(out, "RENDERED") {
		t.Errorf("ToText() = %q, want it to contain source hash and rendered plan", out)
	}
}
