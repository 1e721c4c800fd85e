// Package placeholder turns contract fields and new rent terms into the
// token-to-text map consumed by the template renderer.
package placeholder
