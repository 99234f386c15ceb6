package library

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/saga-engine/pkg/world"
)

// ExportYAML writes worlds as a YAML document using the same field names as
// the JSON storage format.
func ExportYAML(w io.Writer, worlds []world.World) error {
	data, err := json.Marshal(worlds)
	if err != nil {
		return fmt.Errorf("failed to marshal worlds: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to convert worlds: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
