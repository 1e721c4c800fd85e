package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request body schemas.
const (
	schemaGenerate       = "generate.json"
	schemaGenerateDirect = "generate_direct.json"
	schemaSign           = "sign.json"
)

// ErrInvalidBody reports a request body that is not JSON or breaks its schema.
var ErrInvalidBody = errors.New("invalid request body")

// schemas holds the compiled request body schemas.
type schemas map[string]*jsonschema.Schema

func compileSchemas() (schemas, error) {
	compiler := jsonschema.NewCompiler()
	out := make(schemas)
	for _, name := range []string{schemaGenerate, schemaGenerateDirect, schemaSign} {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		s, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// decode validates body against the named schema, then unmarshals it into dst.
func (s schemas) decode(name string, body []byte, dst any) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := s[name].Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBody, schemaMessage(err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}

// schemaMessage flattens a validation error to its leaf causes, each
// prefixed by the offending JSON pointer.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
