package domain

// FormatKind tags an UploadFormat variant.
type FormatKind string

const (
	FormatPDF   FormatKind = "pdf"
	FormatExcel FormatKind = "excel"
	FormatCSV   FormatKind = "csv"
)

// UploadFormat describes how statements for an account are laid out.
// Implementations are PDFFormat, ExcelFormat and CSVFormat.
type UploadFormat interface {
	Kind() FormatKind
	Validate() error
}

// PDFFormat reads statement text out of a PDF. Pages outside
// [FirstPage, LastPage] are ignored; zero means unbounded.
type PDFFormat struct {
	FirstPage int
	LastPage  int
}

func (PDFFormat) Kind() FormatKind { return FormatPDF }

// ExcelFormat locates the statement table inside a workbook. Columns are
// zero-based; HeaderRows leading rows are skipped.
type ExcelFormat struct {
	Sheet        string
	HeaderRows   int
	DateCol      int
	DescCol      int
	AmountCol    int
	DateLayout   string
	DecimalComma bool
}

func (ExcelFormat) Kind() FormatKind { return FormatExcel }

// CSVFormat describes a delimited export. Columns are zero-based.
type CSVFormat struct {
	Delimiter    rune
	HasHeader    bool
	DateCol      int
	DescCol      int
	AmountCol    int
	DateLayout   string
	DecimalComma bool
}

func (CSVFormat) Kind() FormatKind { return FormatCSV }

// Validate rejects page bounds below zero or an inverted range.
func (f PDFFormat) Validate() error {
	if f.FirstPage < 0 || f.LastPage < 0 {
		return invalid("pdf pages", "must not be negative")
	}
	if f.LastPage > 0 && f.FirstPage > f.LastPage {
		return invalid("pdf pages", "first_page is after last_page")
	}
	return nil
}

// Validate rejects negative column indexes and header counts.
func (f ExcelFormat) Validate() error {
	if f.HeaderRows < 0 {
		return invalid("header_rows", "must not be negative")
	}
	return validateColumns(f.DateCol, f.DescCol, f.AmountCol)
}

// Validate rejects negative column indexes.
func (f CSVFormat) Validate() error {
	return validateColumns(f.DateCol, f.DescCol, f.AmountCol)
}

func validateColumns(date, desc, amount int) error {
	switch {
	case date < 0:
		return invalid("date_col", "must not be negative")
	case desc < 0:
		return invalid("desc_col", "must not be negative")
	case amount < 0:
		return invalid("amount_col", "must not be negative")
	}
	return nil
}
