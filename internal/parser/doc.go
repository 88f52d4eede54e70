// Package parser turns a free-form availability statement into dates and a
// status by asking an OpenAI chat model for structured output.
//
// The model resolves relative expressions ("next Tuesday", "all of June")
// against the date passed to Parse. The response is validated strictly:
// anything that does not decode into the expected shape fails the call.
package parser
