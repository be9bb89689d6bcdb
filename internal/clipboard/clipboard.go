// Package clipboard abstracts the system clipboard so the fallback
// delivery path can be exercised in tests.
package clipboard

import "github.com/atotto/clipboard"

type Writer interface {
	WriteAll(text string) error
}

type systemWriter struct{}

func (systemWriter) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// System returns the real clipboard.
func System() Writer {
	return systemWriter{}
}
