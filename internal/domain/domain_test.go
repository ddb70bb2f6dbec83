package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExecutionContext(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		sessionID   string
		wantUser    bool
		wantSession bool
		wantString  string
	}{
		{
			name:        "both attributes",
			userID:      "alice",
			sessionID:   "sess-alice",
			wantUser:    true,
			wantSession: true,
			wantString:  "RequestContext{userId='alice', sessionId='sess-alice'}",
		},
		{
			name:       "user only",
			userID:     "bob",
			wantUser:   true,
			wantString: "RequestContext{userId='bob', sessionId='null'}",
		},
		{
			name:        "session only",
			sessionID:   "sess-1",
			wantSession: true,
			wantString:  "RequestContext{userId='null', sessionId='sess-1'}",
		},
		{
			name:       "neither",
			wantString: "RequestContext{userId='null', sessionId='null'}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewExecutionContext(tt.userID, tt.sessionID)

			user, ok := ec.UserID()
			assert.Equal(t, tt.wantUser, ok)
			assert.Equal(t, tt.userID, user)

			session, ok := ec.SessionID()
			assert.Equal(t, tt.wantSession, ok)
			assert.Equal(t, tt.sessionID, session)

			assert.Equal(t, !tt.wantUser && !tt.wantSession, ec.IsZero())
			assert.Equal(t, tt.wantString, ec.String())
		})
	}
}

func TestExecutionContext_EqualityByValue(t *testing.T) {
	a := NewExecutionContext("alice", "sess-alice")
	b := NewExecutionContext("alice", "sess-alice")
	c := NewExecutionContext("alice", "sess-other")

	assert.True(t, a == b)
	assert.False(t, a == c)
	assert.True(t, ExecutionContext{} == NewExecutionContext("", ""))
}

func TestOrder_String(t *testing.T) {
	assert.Equal(t, "Order #1 for customer: John Doe", Order{Number: 1, Customer: "John Doe"}.String())
	assert.Equal(t, "Order #12 for customer: Eve", Order{Number: 12, Customer: "Eve"}.String())
}

func TestJoinOrders(t *testing.T) {
	orders := []Order{
		{Number: 1, Customer: "Charlie"},
		{Number: 2, Customer: "Diana"},
		{Number: 3, Customer: "Eve"},
	}

	assert.Equal(t,
		"Order #1 for customer: Charlie; Order #2 for customer: Diana; Order #3 for customer: Eve",
		JoinOrders(orders),
	)
	assert.Empty(t, JoinOrders(nil))
}

func TestValidateCustomerName(t *testing.T) {
	assert.NoError(t, ValidateCustomerName("Bob"))
	assert.True(t, IsValidation(ValidateCustomerName("")))
	assert.True(t, IsValidation(ValidateCustomerName("   ")))
}
