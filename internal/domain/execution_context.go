// Package domain holds the identity and order types a unit of work operates
// on, and the errors those operations report.
package domain

import "fmt"

// ExecutionContext carries the identity attributes of one unit of work.
// It is an immutable value: construct it once with NewExecutionContext and
// compare with ==.
type ExecutionContext struct {
	userID     string
	sessionID  string
	hasUser    bool
	hasSession bool
}

// NewExecutionContext builds an ExecutionContext from inbound attributes.
// An empty string means the attribute was not supplied.
func NewExecutionContext(userID, sessionID string) ExecutionContext {
	return ExecutionContext{
		userID:     userID,
		sessionID:  sessionID,
		hasUser:    userID != "",
		hasSession: sessionID != "",
	}
}

// UserID returns the user identifier and whether it was supplied.
func (c ExecutionContext) UserID() (string, bool) {
	return c.userID, c.hasUser
}

// SessionID returns the session identifier and whether it was supplied.
func (c ExecutionContext) SessionID() (string, bool) {
	return c.sessionID, c.hasSession
}

// IsZero reports whether neither attribute was supplied.
func (c ExecutionContext) IsZero() bool {
	return !c.hasUser && !c.hasSession
}

// String renders the context for diagnostics. Absent attributes render as null.
func (c ExecutionContext) String() string {
	return fmt.Sprintf("RequestContext{userId='%s', sessionId='%s'}",
		orNull(c.userID, c.hasUser), orNull(c.sessionID, c.hasSession))
}

func orNull(v string, ok bool) string {
	if !ok {
		return "null"
	}

	return v
}
