// Package joincond parses relationship join conditions and renders them as
// Snowflake semantic view REFERENCES fragments.
//
// Two input formats are accepted and detected automatically:
//
//	{{ column('orders', 'customer_id') }} = {{ ref('customers', 'id') }}   template
//	ORDERS.CUSTOMER_ID = CUSTOMERS.ID                                      resolved
//
// so the same parser works before and after template resolution.
//
// # Operators
//
// The operator is found by a priority-ordered substring scan rather than a
// tokenizer. An operator appearing inside a quoted literal is therefore
// detected like a real one.
//
// BETWEEN is parsed only up to its lower bound and is rejected by
// ValidateCondition.
package joincond
