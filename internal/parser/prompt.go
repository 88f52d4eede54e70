package parser

import (
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// schemaName names the structured output format sent to the model.
const schemaName = "availability_update"

// responseSchema describes the JSON object the model must return.
var responseSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"dates": {
			Type:        jsonschema.Array,
			Description: "List of dates in YYYY-MM-DD format",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
		"status": {
			Type:        jsonschema.String,
			Description: "Whether the member is available or unavailable",
			Enum:        []string{"available", "unavailable"},
		},
	},
	Required:             []string{"dates", "status"},
	AdditionalProperties: false,
}

// systemPrompt returns the instructions for one request, anchored on today.
func systemPrompt(today time.Time) string {
	year := today.Year()
	return fmt.Sprintf(`You are an AI assistant that parses natural language availability statements into structured data.
Today's date is %s.

Extract:
1. All specific dates mentioned (convert to YYYY-MM-DD format)
2. Whether the person is available or unavailable for those dates

Common patterns:
- "I can't do May 5th" = unavailable on %d-05-05
- "I'm available May 12" = available on %d-05-12
- "Not available next Tuesday" = calculate the date of next Tuesday from today
- "Available all of June" = generate all dates in June
- "Can't do the 5th" = assume current or next month depending on context

Important: When parsing relative dates like "next Tuesday" or "the 5th", calculate from today's date.

Respond with a JSON object with the fields "dates" (array of YYYY-MM-DD strings) and "status" ("available" or "unavailable").`,
		today.Format(time.DateOnly), year, year)
}
