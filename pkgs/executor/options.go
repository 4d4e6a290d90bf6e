package executor

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/rpc"
)

// Options are the recognized executor options (spec §6): timeout in
// milliseconds, the memory cap in megabytes, the read consistency, the
// user-facing batch size, and an opaque continuation token from a prior
// call.
type Options struct {
	Timeout         int
	MaxMemoryMB     int
	Consistency     rpc.Consistency
	Limit           int
	ContinuationKey []byte
}

// optionsSchema constrains the JSON projection of Options used to validate
// caller-supplied values before they reach the executor, mirroring the
// teacher's compile-then-validate jsonschema.v5 usage.
const optionsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "timeout":     { "type": "integer", "exclusiveMinimum": 0 },
    "maxMemoryMB": { "type": "integer", "exclusiveMinimum": 0 },
    "consistency": { "type": "string", "enum": ["absolute", "eventual"] },
    "limit":       { "type": "integer", "exclusiveMinimum": 0 }
  },
  "additionalProperties": false
}`

var compiledOptionsSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	const url = "schema://executor-options.json"
	if err := compiler.AddResource(url, strings.NewReader(optionsSchema)); err != nil {
		panic("executor: invalid built-in options schema: " + err.Error())
	}
	s, err := compiler.Compile(url)
	if err != nil {
		panic("executor: compiling built-in options schema: " + err.Error())
	}
	compiledOptionsSchema = s
}

// Validate checks o against the recognized-options schema, then applies
// engine-specific range rules the schema alone can't express (spec §6).
func (o Options) Validate() error {
	doc := map[string]interface{}{}
	if o.Timeout != 0 {
		doc["timeout"] = o.Timeout
	}
	if o.MaxMemoryMB != 0 {
		doc["maxMemoryMB"] = o.MaxMemoryMB
	}
	switch o.Consistency {
	case rpc.ConsistencyAbsolute:
		doc["consistency"] = "absolute"
	case rpc.ConsistencyEventual:
		doc["consistency"] = "eventual"
	default:
		return queryerr.IllegalArgument("executor options: unrecognized consistency value %d", o.Consistency)
	}
	if o.Limit != 0 {
		doc["limit"] = o.Limit
	}

	b, _ := json.Marshal(doc)
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return queryerr.IllegalArgument("executor options: %v", err)
	}
	if err := compiledOptionsSchema.Validate(v); err != nil {
		return queryerr.IllegalArgument("executor options failed validation: %v", err)
	}
	return nil
}
