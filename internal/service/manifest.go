package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/qmsworks/qms/internal/models"
)

// manifestTimeLayout is how timestamps are printed on the manifest.
const manifestTimeLayout = "2006-01-02 15:04:05 MST"

// WriteManifest renders a PDF listing every signature on the latest revision
// of code. Typed signatures show the name the signer typed; drawn and
// click-wrap signatures show their method only.
func (s *SignatureService) WriteManifest(ctx context.Context, code string, w io.Writer) error {
	doc, err := s.docs.GetDocument(ctx, code)
	if err != nil {
		return err
	}

	sigs, err := s.sigs.ListSignatures(ctx, code)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Signature manifest "+doc.Code, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Signature Manifest"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	manifestRow(pdf, tr, "Document", doc.Code+"  "+doc.Title)
	manifestRow(pdf, tr, "Status", string(doc.Status))

	if rev := doc.LatestRevision; rev != nil {
		manifestRow(pdf, tr, "Revision", strconv.Itoa(rev.Number))
		manifestRow(pdf, tr, "Content hash", rev.ContentHash)
	}

	manifestRow(pdf, tr, "Generated", s.now().UTC().Format(manifestTimeLayout))
	pdf.Ln(6)

	widths := []float64{45, 55, 28, 28, 34}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(224, 224, 224)

	for i, h := range []string{"Signer", "Email", "Role", "Method", "Signed at"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}

	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)

	for _, sig := range sigs {
		signer := sig.User.Name
		if sig.Method == models.MethodTyped {
			typed, err := s.sigs.OpenPayload(ctx, sig.ID)
			if err != nil {
				return fmt.Errorf("opening signature %s: %w", sig.ID, err)
			}

			signer = fmt.Sprintf("/%s/", typed)
		}

		cells := []string{
			signer,
			sig.User.Email,
			string(sig.Role),
			string(sig.Method),
			sig.SignedAt.UTC().Format(time.DateTime),
		}

		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, tr(c), "1", 0, "L", false, 0, "")
		}

		pdf.Ln(-1)
	}

	if len(sigs) == 0 {
		pdf.Cell(0, 8, "No signatures recorded on this revision.")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering manifest: %w", err)
	}

	return nil
}

func manifestRow(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(35, 6, label+":")
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(value))
	pdf.Ln(6)
}
