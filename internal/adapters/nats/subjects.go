package natsadapter

import "strings"

// Subject roots.
const (
	RequestsSubjects   = "civic.requests.>"
	BoundariesSubjects = "civic.boundaries.>"
	UnroutedSubject    = "civic.requests.unrouted"
)

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// token makes an identifier safe to use as a single subject token.
func token(id string) string {
	if id == "" {
		return "_"
	}
	return tokenReplacer.Replace(id)
}

// RoutedSubject is the subject a routed request is published on.
func RoutedSubject(jurisdictionID string) string {
	return "civic.requests.routed." + token(jurisdictionID)
}

// BoundaryChangedSubject is the subject a boundary change is published on.
func BoundaryChangedSubject(jurisdictionID string) string {
	return "civic.boundaries.changed." + token(jurisdictionID)
}
