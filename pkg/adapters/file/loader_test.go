package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/domain"
)

const pizzaYAML = `
flows:
  - name: order_pizza
    description: Order a pizza for delivery.
    triggers: ["order a pizza", "pizza"]
    slots:
      - name: size
        prompt: What size pizza?
        description: Small, medium, or large.
    steps:
      - id: ask_size
        type: collect
        slot: size
      - id: confirm_order
        type: confirm
        slot: order_ok
        prompt: "A {size} pizza, correct?"
      - id: place
        type: action
        action: orders.place
        outputs:
          id: order_id
      - id: done
        type: say
        prompt: "Order {order_id} placed!"
`

const surveyYAML = `
name: survey
steps:
  - id: more
    type: while
    condition: "answered != 'yes'"
    body:
      - id: note
        type: say
        prompt: Thanks for participating.
      - id: mark
        type: set
        assign:
          answered: "yes"
  - id: route
    type: branch
    slot: answered
    cases:
      - when: "yes"
        target: bye
    default: bye
  - id: bye
    type: say
    prompt: Goodbye.
`

func TestParseFlowsDocumentShapes(t *testing.T) {
	flows, err := ParseFlows([]byte(pizzaYAML))
	require.NoError(t, err)
	require.Len(t, flows, 1)

	flow := flows[0]
	assert.Equal(t, "order_pizza", flow.Name)
	assert.Equal(t, []string{"order a pizza", "pizza"}, flow.Triggers)
	require.Len(t, flow.Steps, 4)
	assert.Equal(t, domain.StepCollect, flow.Steps[0].Type)
	assert.Equal(t, "order_id", flow.Steps[2].Outputs["id"])

	single, err := ParseFlows([]byte(surveyYAML))
	require.NoError(t, err)
	require.Len(t, single, 1)
	require.Len(t, single[0].Steps, 3)
	assert.Equal(t, domain.StepWhile, single[0].Steps[0].Type)
	require.Len(t, single[0].Steps[0].Body, 2)
	assert.Equal(t, "yes", single[0].Steps[0].Body[1].Assign["answered"])
	assert.Equal(t, "bye", single[0].Steps[1].Cases[0].Target)
}

func TestParseFlowsRejectsUnknownFields(t *testing.T) {
	_, err := ParseFlows([]byte("name: x\nstepz: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stepz")
}

func TestParseFlowsRequiresName(t *testing.T) {
	_, err := ParseFlows([]byte("description: unnamed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}

func TestLoadFlowsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_survey.yaml"), []byte(surveyYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_pizza.yml"), []byte(pizzaYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	flows, err := LoadFlows(dir)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "order_pizza", flows[0].Name, "files load in name order")
	assert.Equal(t, "survey", flows[1].Name)
}

func TestLoadFlowsEmptyDirectory(t *testing.T) {
	_, err := LoadFlows(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no flow definitions")
}
