package healing

import "strings"

// classifierRule maps message substrings to a failure type. Rules are
// evaluated in order; the first match wins.
type classifierRule struct {
	substrings []string
	failure    FailureType
}

// Classifier maps a raw error message to a categorical FailureType using a
// fixed, ordered rule list with case-insensitive substring matching.
type Classifier struct {
	rules []classifierRule
}

// NewClassifier creates a classifier with the built-in rule order. Timeout
// is checked before element lookup because timeout messages frequently also
// mention the selector that timed out.
func NewClassifier() *Classifier {
	return &Classifier{
		rules: []classifierRule{
			{substrings: []string{"timeout"}, failure: FailureTimeout},
			{substrings: []string{"not found", "selector"}, failure: FailureElementNotFound},
			{substrings: []string{"network", "fetch"}, failure: FailureNetwork},
			{substrings: []string{"assert", "expect"}, failure: FailureAssertion},
		},
	}
}

// Classify returns the failure type for a raw error message.
func (c *Classifier) Classify(message string) FailureType {
	msg := strings.ToLower(message)
	for _, rule := range c.rules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.failure
			}
		}
	}
	return FailureUnknown
}

// Resolve returns the failure's type, classifying from the raw message only
// when the incoming type is unknown (or unset). An explicitly pre-classified
// type is never overridden.
func (c *Classifier) Resolve(failure TestFailure) FailureType {
	if failure.Type != "" && failure.Type != FailureUnknown {
		return failure.Type
	}
	if failure.Message == "" {
		return FailureUnknown
	}
	return c.Classify(failure.Message)
}
