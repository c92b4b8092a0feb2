package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/jask/jaskledger/internal/domain"
)

const maxPDFText = 1 << 20

// ErrUnsupportedFormat is returned for an upload format the parser does not know.
var ErrUnsupportedFormat = errors.New("unsupported upload format")

// ParseUpload reads an uploaded statement laid out as described by format.
// The size is only needed for PDF input.
func (p *Parser) ParseUpload(r io.Reader, size int64, format domain.UploadFormat) (Result, error) {
	switch f := format.(type) {
	case domain.CSVFormat:
		return p.ParseCSV(r, f)
	case domain.ExcelFormat:
		return p.ParseExcel(r, f)
	case domain.PDFFormat:
		ra, ok := r.(io.ReaderAt)
		if !ok {
			data, err := io.ReadAll(r)
			if err != nil {
				return Result{}, fmt.Errorf("read pdf: %w", err)
			}
			ra, size = bytes.NewReader(data), int64(len(data))
		}
		return p.ParsePDF(ra, size, f)
	case nil:
		return Result{}, fmt.Errorf("%w: none configured", ErrUnsupportedFormat)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format.Kind())
	}
}

// ParseCSV reads a delimited export. Rows with too few columns or unreadable
// cells are skipped, like free-text lines.
func (p *Parser) ParseCSV(r io.Reader, f domain.CSVFormat) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if f.Delimiter != 0 {
		cr.Comma = f.Delimiter
	}
	var res Result
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			res.Outcomes = append(res.Outcomes, p.skip(row, "", SkipNoTemplate, err.Error()))
			continue
		}
		if row == 1 && f.HasHeader {
			continue
		}
		if isBlankRecord(rec) {
			continue
		}
		res.Outcomes = append(res.Outcomes, p.tableRow(row, rec, f.DateCol, f.DescCol, f.AmountCol, f.DateLayout, f.DecimalComma))
	}
	return res, nil
}

// ParseExcel reads rows from one sheet of a workbook.
func (p *Parser) ParseExcel(r io.Reader, f domain.ExcelFormat) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := f.Sheet
	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	var res Result
	for i, rec := range rows {
		if i < f.HeaderRows || isBlankRecord(rec) {
			continue
		}
		res.Outcomes = append(res.Outcomes, p.tableRow(i+1, rec, f.DateCol, f.DescCol, f.AmountCol, f.DateLayout, f.DecimalComma))
	}
	return res, nil
}

// ParsePDF extracts the plain text of a PDF statement and parses it line by
// line. Page bounds of f are applied when set. Text past maxPDFText is
// dropped and reported as a truncated line.
func (p *Parser) ParsePDF(ra io.ReaderAt, size int64, f domain.PDFFormat) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	doc, err := pdf.NewReader(ra, size)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	var plain io.Reader
	if f.FirstPage == 0 && f.LastPage == 0 {
		plain, err = doc.GetPlainText()
		if err != nil {
			return Result{}, fmt.Errorf("extract pdf text: %w", err)
		}
	} else {
		text, err := pageText(doc, f)
		if err != nil {
			return Result{}, err
		}
		plain = strings.NewReader(text)
	}
	return p.parseExtracted(plain, maxPDFText)
}

// parseExtracted parses at most limit bytes of text. When more is available
// the text is cut at the last complete line and a Skipped entry records it.
func (p *Parser) parseExtracted(r io.Reader, limit int) (Result, error) {
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	if len(b) <= limit {
		return p.ParseText(string(b)), nil
	}
	b = b[:limit]
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	res := p.ParseText(string(b))
	lines := bytes.Count(b, []byte{'\n'}) + 1
	detail := fmt.Sprintf("text beyond %d bytes was not read", limit)
	res.Outcomes = append(res.Outcomes, p.skip(lines+1, "", SkipTruncated, detail))
	return res, nil
}

func pageText(doc *pdf.Reader, f domain.PDFFormat) (string, error) {
	first, last := max(f.FirstPage, 1), doc.NumPage()
	if f.LastPage > 0 && f.LastPage < last {
		last = f.LastPage
	}
	var sb strings.Builder
	for i := first; i <= last; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// tableRow reads one tabular record. Columns already split the row, so only
// date, amount and description normalization apply.
func (p *Parser) tableRow(n int, rec []string, dateCol, descCol, amountCol int, layout string, decimalComma bool) Outcome {
	original := strings.Join(rec, " | ")
	need := max(dateCol, descCol, amountCol) + 1
	if len(rec) < need {
		return p.skip(n, original, SkipNoTemplate, fmt.Sprintf("expected at least %d columns", need))
	}
	date, err := parseCellDate(rec[dateCol], layout)
	if err != nil {
		return p.skip(n, original, SkipInvalidDate, err.Error())
	}
	rawAmount := rec[amountCol]
	if decimalComma {
		rawAmount = strings.ReplaceAll(strings.ReplaceAll(rawAmount, ".", ""), ",", ".")
	}
	amount, err := NormalizeAmount(rawAmount)
	if err != nil {
		return p.skip(n, original, SkipInvalidAmount, err.Error())
	}
	desc := CleanDescription(rec[descCol])
	if desc == "" {
		return p.skip(n, original, SkipEmpty, "")
	}
	return Parsed{Candidate: newCandidate(n, date, desc, amount, original)}
}

func parseCellDate(raw, layout string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if layout != "" {
		t, err := time.Parse(layout, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q with layout %q: %w", raw, layout, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parts := splitDate(raw)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return NormalizeDate(parts[0], parts[1], parts[2])
}

func splitDate(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
