// Package textutil normalizes transcript text and splits it into
// overlapping word windows sized to the model's token budget.
package textutil
