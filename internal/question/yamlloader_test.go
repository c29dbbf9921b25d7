package question

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quotevox/quotevox/pkg/types"
)

const carQuoteYAML = `
flow:
  id: "car-quote"
  name: "Car insurance quote"
questions:
  - id: "fuel"
    text: "What fuel does the car use?"
    input_type: select
    variants:
      - "What fuel does the car use?"
      - "Is the car petrol, diesel or electric?"
    options:
      - label: "Petrol"
        value: "petrol"
        aliases: ["benzine"]
      - label: "Diesel"
        value: "diesel"
  - id: "model"
    text: "Which model is it?"
    input_type: select
    parent_id: "fuel"
    options_by_parent:
      petrol:
        - label: "Corolla"
          value: "corolla"
      diesel:
        - label: "Hilux"
          value: "hilux"
  - id: "dob"
    text: "What is your date of birth?"
    input_type: date
  - id: "surname"
    text: "Please spell your surname."
    input_type: spelling
  - id: "notes"
    text: "Anything else we should know?"
`

func TestLoadFlowFromReader(t *testing.T) {
	t.Parallel()

	flow, err := LoadFlowFromReader(strings.NewReader(carQuoteYAML))
	if err != nil {
		t.Fatalf("LoadFlowFromReader() unexpected error: %v", err)
	}

	if flow.ID != "car-quote" {
		t.Errorf("ID = %q, want car-quote", flow.ID)
	}
	if flow.Name != "Car insurance quote" {
		t.Errorf("Name = %q, want 'Car insurance quote'", flow.Name)
	}
	if len(flow.Questions) != 5 {
		t.Fatalf("len(Questions) = %d, want 5", len(flow.Questions))
	}

	fuel := flow.QuestionByID("fuel")
	if fuel == nil {
		t.Fatal("fuel question missing")
	}
	if len(fuel.Options) != 2 || fuel.Options[0].Aliases[0] != "benzine" {
		t.Errorf("fuel options = %+v, want petrol alias benzine", fuel.Options)
	}

	model := flow.QuestionByID("model")
	if model == nil || model.ParentID != "fuel" {
		t.Fatalf("model question = %+v, want parent fuel", model)
	}
	if got := model.OptionsByParent["diesel"]; len(got) != 1 || got[0].Value != "hilux" {
		t.Errorf("options_by_parent[diesel] = %+v, want hilux", got)
	}

	// Omitted input_type defaults to text.
	notes := flow.QuestionByID("notes")
	if notes == nil || notes.InputType != types.InputText {
		t.Errorf("notes = %+v, want input type text", notes)
	}
}

func TestLoadFlowFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	const doc = `
flow:
  id: "quote"
questions:
  - id: "q"
    text: "t"
    colour: "red"
`
	if _, err := LoadFlowFromReader(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadFlowFromReader() expected error for unknown field, got nil")
	}
}

func TestLoadFlowFromReader_InvalidFlow(t *testing.T) {
	t.Parallel()

	const doc = `
flow:
  id: "quote"
questions:
  - id: "q"
    text: "pick one"
    input_type: select
`
	_, err := LoadFlowFromReader(strings.NewReader(doc))
	if err == nil {
		t.Fatal("LoadFlowFromReader() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "select question has no options") {
		t.Errorf("error = %q, want select validation failure", err)
	}
}

func TestLoadFlowFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte(carQuoteYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	flow, err := LoadFlowFile(path)
	if err != nil {
		t.Fatalf("LoadFlowFile() unexpected error: %v", err)
	}
	if flow.ID != "car-quote" {
		t.Errorf("ID = %q, want car-quote", flow.ID)
	}
}

func TestLoadFlowFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFlowFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFlowFile() expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}
