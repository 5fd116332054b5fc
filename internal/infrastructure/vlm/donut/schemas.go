package donut

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	domain.SchemaInvoice:            "schemas/invoice.json",
	domain.SchemaFinancialStatement: "schemas/financial_statement.json",
	domain.SchemaContract:           "schemas/contract.json",
	domain.SchemaForm:               "schemas/form.json",
}

// compileSchemas builds one validator per supported schema type from the
// embedded definitions.
func compileSchemas() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	for schemaType, file := range schemaFiles {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("donut: read schema %s: %w", schemaType, err)
		}
		if err := compiler.AddResource(file, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("donut: add schema %s: %w", schemaType, err)
		}
	}

	validators := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for schemaType, file := range schemaFiles {
		schema, err := compiler.Compile(file)
		if err != nil {
			return nil, fmt.Errorf("donut: compile schema %s: %w", schemaType, err)
		}
		validators[schemaType] = schema
	}
	return validators, nil
}
