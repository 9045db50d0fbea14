package receipt

import (
	"fmt"
	"io"
)

// Preview renders finalized receipts read-only
type Preview struct{}

// Render writes the receipt's HTML presentation. The same receipt always renders identically.
func (Preview) Render(w io.Writer, r *Receipt) error {
	if r == nil {
		return fmt.Errorf("rendering preview: no receipt")
	}
	if err := templates.ExecuteTemplate(w, "preview", r); err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}
	return nil
}
