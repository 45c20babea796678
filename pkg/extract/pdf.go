package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfToText extracts plain text page by page. Image-only or otherwise
// unreadable pages are skipped rather than failing the whole file.
func pdfToText(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := rdr.NumPage()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pg := rdr.Page(i)
		txt, err := pg.GetPlainText(nil)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(txt)
		if s == "" {
			continue
		}
		out = append(out, "Page "+strconv.Itoa(i)+"\n"+s)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("no extractable text in pdf")
	}
	return strings.Join(out, "\n\n"), nil
}
