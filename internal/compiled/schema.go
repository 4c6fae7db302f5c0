package compiled

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/alexchoi0/blueprint/internal/schema"
)

// SchemaMetadata is the envelope persisted for a compiled schema: the
// generator's output with its source hash, compile time and optional
// source metadata. It carries no required-env or required-config lists.
// The compile pipeline does not read it back; generated schemas are
// memoized in memory by internal/generator/cache.go.
type SchemaMetadata struct {
	SchemaVersion int
	SourceHash    string
	CompiledAt    int64
	Schema        *schema.Schema
	Metadata      *Metadata
}

// CompiledSchema wraps the decoded envelope; ToBytes and Save always
// write it under the compiled-schema magic.
type CompiledSchema struct {
	SchemaMetadata
}

// NewCompiledSchema builds a CompiledSchema ready to Save.
func NewCompiledSchema(s *schema.Schema, sourceHash string, compiledAt int64, meta *Metadata) *CompiledSchema {
	return &CompiledSchema{SchemaMetadata{
		SchemaVersion: SchemaVersion,
		SourceHash:    sourceHash,
		CompiledAt:    compiledAt,
		Schema:        s,
		Metadata:      meta,
	}}
}

// ToBytes encodes the container: magic, length prefix, gob payload.
func (c *CompiledSchema) ToBytes() ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(c.SchemaMetadata); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(schemaMagic[:])
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(payload.Len()))
	out.Write(lenBuf[:])
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

// SchemaFromBytes decodes a container previously produced by ToBytes.
func SchemaFromBytes(data []byte) (*CompiledSchema, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], schemaMagic[:]) {
		return nil, fmt.Errorf("not a compiled schema file: bad magic")
	}
	length := binary.BigEndian.Uint32(data[4:8])
	if uint32(len(data)-8) < length {
		return nil, fmt.Errorf("truncated compiled schema file: expected %d payload bytes, have %d", length, len(data)-8)
	}

	var sm SchemaMetadata
	if err := gob.NewDecoder(bytes.NewReader(data[8 : 8+length])).Decode(&sm); err != nil {
		return nil, err
	}
	if sm.SchemaVersion != SchemaVersion {
		return nil, &VersionMismatchError{Found: sm.SchemaVersion, Expected: SchemaVersion}
	}
	return &CompiledSchema{sm}, nil
}

// Save writes the encoded container to path.
func (c *CompiledSchema) Save(path string) error {
	data, err := c.ToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSchema reads and decodes a compiled schema file from path.
func LoadSchema(path string) (*CompiledSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SchemaFromBytes(data)
}
