package ner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaURL = "ner_response.json"

// responseSchema 推理服务响应格式
var responseSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []string{"entities"},
	"properties": map[string]any{
		"entities": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"start", "end", "label"},
				"properties": map[string]any{
					"start": map[string]any{"type": "integer", "minimum": 0},
					"end":   map[string]any{"type": "integer", "minimum": 0},
					"label": map[string]any{"type": "string", "minLength": 1},
					"text":  map[string]any{"type": "string"},
				},
			},
		},
	},
}

// compileResponseSchema 编译响应 schema，构造客户端时调用一次
func compileResponseSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(responseSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(responseSchemaURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(responseSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateResponse 校验原始响应体
func validateResponse(schema *jsonschema.Schema, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
