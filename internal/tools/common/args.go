package common

import (
	"strings"
)

// ArgMemberName is the tool argument naming a band member.
const ArgMemberName = "memberName"

// GetStringArg returns the trimmed string argument key, or "" when it is
// missing or not a string.
func GetStringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// GetMemberFromArgs returns the member the request acts on, if any.
func GetMemberFromArgs(args map[string]interface{}) string {
	return GetStringArg(args, ArgMemberName)
}
