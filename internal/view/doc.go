// Package view derives what the screen shows from the selection and the
// cached history. Derive and Heatmap are pure; Binding reads the live stores.
package view
