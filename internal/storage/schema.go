/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// boardSchemaJSON is the manifest contract. Width and height must be
// non-negative: the engine's overlap math assumes it and is not defended
// internally, so the check happens here at the boundary.
const boardSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Board",
  "type": "object",
  "required": ["name", "items"],
  "properties": {
    "name": { "type": "string" },
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "file_type", "x", "y", "width", "height"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "name": { "type": "string" },
          "description": { "type": "string" },
          "keywords": { "type": "string" },
          "file_type": { "type": "string" },
          "file_size": { "type": "integer", "minimum": 0 },
          "file_path": { "type": "string" },
          "thumbnail_path": { "type": "string" },
          "x": { "type": "number" },
          "y": { "type": "number" },
          "width": { "type": "number", "minimum": 0 },
          "height": { "type": "number", "minimum": 0 },
          "position_locked": { "type": "boolean" },
          "manual_cluster_id": { "type": "string" },
          "created_at": { "type": "string" }
        }
      }
    }
  }
}`

// ValidateBoardJSON checks raw manifest bytes against the board schema and
// returns a single error describing every violation.
func ValidateBoardJSON(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(boardSchemaJSON)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate board: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("board manifest invalid:")
	for _, e := range result.Errors() {
		sb.WriteString("\n  - ")
		sb.WriteString(e.String())
	}
	return fmt.Errorf("%s", sb.String())
}
