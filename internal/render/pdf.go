package render

import (
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/execbrief/internal/selection"
)

// writeOnePager renders the ASCII summary sheet. The core PDF fonts have
// no CJK coverage, so this page sticks to the English titles and source
// names; the Chinese narrative lives in the deck and document.
func writeOnePager(path, day string, events []selection.Event) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(zipEpoch)
	pdf.SetModificationDate(zipEpoch)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Executive Briefing "+day, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d selected events", len(events)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for i, ev := range events {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. [%s] %s", i+1, ev.Bucket, ev.Title), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		line := ev.Source
		if ev.URL != "" {
			line += "  " + ev.URL
		}
		pdf.MultiCell(0, 5, line, "", "L", false)
		pdf.Ln(2)
	}

	tmp := path + ".tmp"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
