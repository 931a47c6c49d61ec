// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// URLChecker resolves a per-URL reputation verdict. Verdicts are independent
// of each other and of the text classification; any lookup failure maps to
// URLError instead of surfacing as an error.
type URLChecker interface {
	CheckURL(url string) URLStatus
}
