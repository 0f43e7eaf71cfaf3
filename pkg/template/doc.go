// Package template resolves {{ ... }} expressions embedded in semantic YAML
// string fields.
//
// Recognized expressions:
//
//	{{ ref('orders') }}             table reference (legacy: table('orders'))
//	{{ ref('orders', 'amount') }}   column reference (legacy: column('orders', 'amount'))
//	{{ metric('revenue') }}         inlines another metric's expression
//	{{ custom_instructions('x') }}  instruction name
//
// Function names are case-insensitive, either quote style is accepted and
// whitespace inside the braces and parentheses is ignored.
package template
