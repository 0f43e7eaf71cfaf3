package joincond

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCondition_Valid(t *testing.T) {
	conditions := []string{
		"{{ column('orders', 'customer_id') }} = {{ column('customers', 'id') }}",
		"{{ column('events', 'event_time') }} >= {{ column('sessions', 'start_time') }}",
		"{{ ref('orders', 'customer_id') }} = {{ ref('customers', 'id') }}",
		"ORDERS.CUSTOMER_ID = CUSTOMERS.ID",
		"EVENTS.EVENT_TIME >= SESSIONS.START_TIME",
	}

	for _, condition := range conditions {
		t.Run(condition, func(t *testing.T) {
			ok, msg := ValidateCondition(condition)
			assert.True(t, ok, msg)
			assert.Empty(t, msg)
		})
	}
}

func TestValidateCondition_RejectsNonGreaterEqualASOF(t *testing.T) {
	tables := []struct{ left, right string }{
		{"a", "b"},
		{"events", "sessions"},
	}

	for _, op := range []string{"<=", "<", ">"} {
		for _, tbl := range tables {
			condition := "{{ column('" + tbl.left + "', 'x') }} " + op + " {{ column('" + tbl.right + "', 'y') }}"
			t.Run(condition, func(t *testing.T) {
				ok, msg := ValidateCondition(condition)
				assert.False(t, ok)
				assert.Contains(t, msg, "'"+op+"'")
				assert.Contains(t, msg, "not supported")
			})
		}
	}
}

func TestValidateCondition_LessOrEqualMessage(t *testing.T) {
	ok, msg := ValidateCondition("{{ column('a','b') }} <= {{ column('a','b') }}")

	assert.False(t, ok)
	assert.Contains(t, msg, "<=")
	assert.Contains(t, msg, "not supported")
}

func TestValidateCondition_RejectsBetween(t *testing.T) {
	ok, msg := ValidateCondition("{{ column('m', 'v') }} BETWEEN {{ column('t', 'lo') }} AND {{ column('t', 'hi') }}")

	assert.False(t, ok)
	assert.Contains(t, msg, "BETWEEN")
	assert.Contains(t, msg, "not supported")
}

func TestValidateCondition_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		contains  string
	}{
		{
			name:      "no operator",
			condition: "{{ column('a', 'b') }} {{ column('c', 'd') }}",
			contains:  "Unknown",
		},
		{
			name:      "not equal",
			condition: "ORDERS.ID != CUSTOMERS.ID",
			contains:  "Unknown join type",
		},
		{
			name:      "angle not equal",
			condition: "ORDERS.ID <> CUSTOMERS.ID",
			contains:  "Unknown join type",
		},
		{
			name:      "left side unresolved",
			condition: "42 = CUSTOMERS.ID",
			contains:  "Could not extract left",
		},
		{
			name:      "right side unresolved",
			condition: "{{ column('orders', 'id') }} = 'x'",
			contains:  "Could not extract right",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := ValidateCondition(tt.condition)
			assert.False(t, ok)
			assert.Contains(t, msg, tt.contains)
		})
	}
}
