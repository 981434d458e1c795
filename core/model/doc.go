// Package model defines the small interfaces the probing tools use to drive a
// loaded model without depending on its concrete format.
package model
