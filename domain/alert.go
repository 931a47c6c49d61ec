// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// Alerter sends a fire-and-forget out-of-band notification to the operator
// contact. Failures are logged by callers, never fatal.
type Alerter interface {
	SendAlert(message string) error
}
