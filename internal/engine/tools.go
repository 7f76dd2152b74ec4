package engine

import (
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/talentarc-ai/outreach-platform/internal/llm"
)

// Tool names form the engine's side of the model protocol. They are
// referenced from the system prompt and must remain stable.
const (
	toolGenerateSequence   = "generate_sequence"
	toolUpdateSequence     = "update_sequence"
	toolAddSequenceStep    = "add_sequence_step"
	toolUpdateSequenceStep = "update_sequence_step"
)

var stepTypeEnum = []string{"email", "linkedin", "phone", "other"}

// toolCatalog declares the four operations offered to the model on every
// first-round request.
func toolCatalog() []llm.Tool {
	return []llm.Tool{
		{
			Name:        toolGenerateSequence,
			Description: "Generate a complete outreach sequence based on gathered information",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"company_name": {
						Type:        jsonschema.String,
						Description: "The name of the company recruiting",
					},
					"role_name": {
						Type:        jsonschema.String,
						Description: "The position being recruited for",
					},
					"candidate_persona": {
						Type:        jsonschema.String,
						Description: "Description of the ideal candidate",
					},
				},
				Required: []string{"company_name", "role_name", "candidate_persona"},
			},
		},
		{
			Name:        toolUpdateSequence,
			Description: "Update an existing outreach sequence",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"sequence_id": {
						Type:        jsonschema.String,
						Description: "The ID of the sequence to update",
					},
					"updates": {
						Type:        jsonschema.Object,
						Description: "A dictionary of updates to apply",
						Properties: map[string]jsonschema.Definition{
							"name":              {Type: jsonschema.String},
							"company_name":      {Type: jsonschema.String},
							"role_name":         {Type: jsonschema.String},
							"candidate_persona": {Type: jsonschema.String},
						},
					},
				},
				Required: []string{"sequence_id", "updates"},
			},
		},
		{
			Name:        toolAddSequenceStep,
			Description: "Add a new step to an outreach sequence",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"sequence_id": {
						Type:        jsonschema.String,
						Description: "The ID of the sequence to update",
					},
					"step_type": {
						Type:        jsonschema.String,
						Enum:        stepTypeEnum,
						Description: "The type of outreach",
					},
					"content": {
						Type:        jsonschema.String,
						Description: "The message content",
					},
					"subject": {
						Type:        jsonschema.String,
						Description: "Email subject (for email type only)",
					},
					"timing": {
						Type:        jsonschema.String,
						Description: "When this step should occur (e.g., 'Day 3')",
					},
					"wait_time": {
						Type:        jsonschema.Integer,
						Description: "Number of days to wait after previous step",
					},
				},
				Required: []string{"sequence_id", "step_type", "content"},
			},
		},
		{
			Name:        toolUpdateSequenceStep,
			Description: "Update an existing step in a sequence",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"step_id": {
						Type:        jsonschema.String,
						Description: "The ID of the step to update",
					},
					"updates": {
						Type:        jsonschema.Object,
						Description: "A dictionary of updates to apply",
						Properties: map[string]jsonschema.Definition{
							"content":   {Type: jsonschema.String},
							"subject":   {Type: jsonschema.String},
							"type":      {Type: jsonschema.String, Enum: stepTypeEnum},
							"timing":    {Type: jsonschema.String},
							"wait_time": {Type: jsonschema.Integer},
						},
					},
				},
				Required: []string{"step_id", "updates"},
			},
		},
	}
}
