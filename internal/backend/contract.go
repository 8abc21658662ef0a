package backend

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names understood by Contract.Validate.
const (
	SchemaStudent     = "student.json"
	SchemaStudents    = "students.json"
	SchemaAssignment  = "assignment.json"
	SchemaAssignments = "assignments.json"
	SchemaSubmissions = "submissions.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Contract validates backend payloads against the embedded JSON schemas.
type Contract struct {
	schemas map[string]*jsonschema.Schema
}

// LoadContract compiles every embedded schema.
func LoadContract() (*Contract, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read contract schemas: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaURL(entry.Name()), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", entry.Name(), err)
		}
		names = append(names, entry.Name())
	}

	contract := &Contract{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		schema, err := compiler.Compile(schemaURL(name))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		contract.schemas[name] = schema
	}

	return contract, nil
}

// Validate checks payload against the named schema.
func (c *Contract) Validate(name string, payload []byte) error {
	schema, ok := c.schemas[name]
	if !ok {
		return fmt.Errorf("unknown contract schema %q", name)
	}

	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}

	return nil
}

func schemaURL(name string) string {
	return "mem://roster/" + name
}
