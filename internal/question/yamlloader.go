package question

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// FlowFile is the top-level structure of a quote flow YAML file.
//
// Example:
//
//	flow:
//	  id: "car-quote"
//	  name: "Car insurance quote"
//	questions:
//	  - id: "fuel"
//	    text: "What fuel does the car use?"
//	    input_type: select
//	    options:
//	      - label: "Petrol"
//	        value: "petrol"
//	        aliases: ["benzine"]
type FlowFile struct {
	Flow      FlowMeta   `yaml:"flow"`
	Questions []Question `yaml:"questions"`
}

// FlowMeta holds top-level metadata for a flow.
type FlowMeta struct {
	// ID identifies the flow to stores and the quote backend.
	ID string `yaml:"id"`

	// Name is the flow's display name.
	Name string `yaml:"name"`
}

// LoadFlowFile reads, parses and validates a flow YAML file from disk.
// Returns a descriptive error if the file cannot be opened, parsed or
// validated.
func LoadFlowFile(path string) (*Flow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("question: open flow file %q: %w", path, err)
	}
	defer f.Close()

	flow, err := LoadFlowFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("question: parse flow file %q: %w", path, err)
	}
	return flow, nil
}

// LoadFlowFromReader parses and validates flow YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
// Phonetically colliding option labels are logged but do not fail the load.
func LoadFlowFromReader(r io.Reader) (*Flow, error) {
	var ff FlowFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("question: decode flow yaml: %w", err)
	}

	flow := &Flow{ID: ff.Flow.ID, Name: ff.Flow.Name, Questions: ff.Questions}
	flow.Normalize()
	if err := flow.Validate(); err != nil {
		return nil, fmt.Errorf("question: invalid flow %q: %w", flow.ID, err)
	}
	for _, c := range flow.PhoneticCollisions() {
		slog.Warn("option labels sound alike, consider adding aliases",
			"flow", flow.ID,
			"question", c.QuestionID,
			"label_a", c.LabelA,
			"label_b", c.LabelB)
	}
	return flow, nil
}
