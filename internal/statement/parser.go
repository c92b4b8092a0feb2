// Package statement turns pasted or uploaded bank statements into candidate
// transactions. Lines that cannot be read are reported as Skipped values,
// never as errors.
package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

// SkipReason says why a line produced no candidate.
type SkipReason string

const (
	SkipHeader        SkipReason = "header"
	SkipNoTemplate    SkipReason = "no_template"
	SkipInvalidDate   SkipReason = "invalid_date"
	SkipInvalidAmount SkipReason = "invalid_amount"
	SkipEmpty         SkipReason = "empty_description"
	SkipTooLong       SkipReason = "line_too_long"
	SkipTruncated     SkipReason = "truncated"
)

// Candidate is one statement line read as a transaction.
type Candidate struct {
	Line         int
	Date         time.Time
	Description  string
	Amount       decimal.Decimal
	Type         domain.TransactionType
	OriginalText string
}

// DateISO formats the candidate date as YYYY-MM-DD.
func (c Candidate) DateISO() string { return c.Date.Format(time.DateOnly) }

// Outcome is either Parsed or Skipped.
type Outcome interface {
	outcome()
}

// Parsed wraps a successfully read line.
type Parsed struct {
	Candidate Candidate
}

// Skipped records a dropped line and the reason.
type Skipped struct {
	Line   int
	Text   string
	Reason SkipReason
	Detail string
}

func (Parsed) outcome()  {}
func (Skipped) outcome() {}

// Result is the per-line outcome of a parse, in input order. Blank lines
// produce no outcome.
type Result struct {
	Outcomes []Outcome
}

// Candidates returns the parsed lines.
func (r Result) Candidates() []Candidate {
	var out []Candidate
	for _, o := range r.Outcomes {
		if p, ok := o.(Parsed); ok {
			out = append(out, p.Candidate)
		}
	}
	return out
}

// Skipped returns the dropped lines.
func (r Result) Skipped() []Skipped {
	var out []Skipped
	for _, o := range r.Outcomes {
		if s, ok := o.(Skipped); ok {
			out = append(out, s)
		}
	}
	return out
}

// template captures day/month/year parts (in the order given by yearFirst
// detection), description and amount.
type template struct {
	name string
	re   *regexp.Regexp
}

// A space may follow the sign and may separate thousands groups of exactly
// three digits, so "- 45,80" and "-1 234,56" are read whole.
const (
	dateSep   = `[/.\-]`
	amountPat = `"?([-+]?\s*\d(?:[\d.,]|\s\d{3}\b)*)"?`
	currency  = `\s*(?:€|EUR|eur)?\s*`
)

// maxLineLen bounds a single statement line; longer lines are skipped.
const maxLineLen = 64 * 1024

// templates are tried in order; the first match wins.
var templates = []template{
	{
		name: "day-first",
		re: regexp.MustCompile(`^\s*(\d{1,2})` + dateSep + `(\d{1,2})` + dateSep + `(\d{4}|\d{2})` +
			`[\s;,\t]+(.+?)[\s;\t]+` + amountPat + currency + `$`),
	},
	{
		name: "year-first",
		re: regexp.MustCompile(`^\s*(\d{4})` + dateSep + `(\d{1,2})` + dateSep + `(\d{1,2})` +
			`[\s;,\t]+(.+?)[\s;\t]+` + amountPat + currency + `$`),
	},
	{
		name: "delimited",
		re: regexp.MustCompile(`^\s*(\d{1,4})` + dateSep + `(\d{1,2})` + dateSep + `(\d{1,4})` +
			`\s*[,;\t]\s*(.+?)\s*[,;\t]\s*` + amountPat + currency + `$`),
	},
}

var (
	dateKeywords   = []string{"data", "date", "fecha"}
	amountKeywords = []string{"valor", "amount", "montante", "importe", "value"}

	disallowedDesc = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.]`)
	spaces         = regexp.MustCompile(`\s+`)
)

// Parser reads free-text statements.
type Parser struct {
	Log zerolog.Logger
}

// NewParser returns a Parser that logs skipped lines with l.
func NewParser(l zerolog.Logger) *Parser {
	return &Parser{Log: l}
}

// ParseText parses one transaction per line. A line of any length is read;
// one longer than maxLineLen is skipped without blocking the rest.
func (p *Parser) ParseText(text string) Result {
	var res Result
	n := 0
	for rest := text; rest != ""; {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		n++
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) > maxLineLen {
			detail := fmt.Sprintf("%d bytes exceeds %d", len(line), maxLineLen)
			res.Outcomes = append(res.Outcomes, p.skip(n, preview(line), SkipTooLong, detail))
			continue
		}
		res.Outcomes = append(res.Outcomes, p.ParseLine(n, line))
	}
	return res
}

// preview shortens an oversized line for logs and Skipped.Text.
func preview(line string) string {
	const n = 120
	if len(line) <= n {
		return line
	}
	return strings.ToValidUTF8(line[:n], "") + "..."
}

// ParseLine parses a single statement line numbered n.
func (p *Parser) ParseLine(n int, line string) Outcome {
	if isHeader(line) {
		return p.skip(n, line, SkipHeader, "")
	}
	for _, tpl := range templates {
		m := tpl.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		date, err := NormalizeDate(m[1], m[2], m[3])
		if err != nil {
			return p.skip(n, line, SkipInvalidDate, err.Error())
		}
		amount, err := NormalizeAmount(m[5])
		if err != nil {
			return p.skip(n, line, SkipInvalidAmount, err.Error())
		}
		desc := CleanDescription(m[4])
		if desc == "" {
			return p.skip(n, line, SkipEmpty, "")
		}
		return Parsed{Candidate: newCandidate(n, date, desc, amount, line)}
	}
	return p.skip(n, line, SkipNoTemplate, "")
}

func (p *Parser) skip(n int, line string, reason SkipReason, detail string) Skipped {
	ev := p.Log.Warn().Int("line", n).Str("reason", string(reason)).Str("text", line)
	if detail != "" {
		ev = ev.Str("detail", detail)
	}
	ev.Msg("statement line skipped")
	return Skipped{Line: n, Text: line, Reason: reason, Detail: detail}
}

// newCandidate derives the type from the sign of the signed amount. Zero is
// treated as income.
func newCandidate(n int, date time.Time, desc string, signed decimal.Decimal, original string) Candidate {
	typ := domain.Income
	if signed.IsNegative() {
		typ = domain.Expense
	}
	return Candidate{
		Line:         n,
		Date:         date,
		Description:  desc,
		Amount:       signed.Abs(),
		Type:         typ,
		OriginalText: original,
	}
}

func isHeader(line string) bool {
	lower := strings.ToLower(line)
	return containsAny(lower, dateKeywords) && containsAny(lower, amountKeywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// NormalizeDate builds a UTC date from three captured groups. A first group of
// four digits is read as year-month-day, anything else as day-month-year.
// Two-digit years are taken as 20YY.
func NormalizeDate(g1, g2, g3 string) (time.Time, error) {
	var y, m, d string
	if len(g1) == 4 {
		y, m, d = g1, g2, g3
	} else {
		d, m, y = g1, g2, g3
	}
	if len(y) == 2 {
		y = "20" + y
	}
	if len(y) != 4 {
		return time.Time{}, fmt.Errorf("year %q is not four digits", y)
	}
	yi, errY := strconv.Atoi(y)
	mi, errM := strconv.Atoi(m)
	di, errD := strconv.Atoi(d)
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, fmt.Errorf("invalid date parts %q %q %q", g1, g2, g3)
	}
	iso := fmt.Sprintf("%04d-%02d-%02d", yi, mi, di)
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", iso, err)
	}
	return t, nil
}

// NormalizeAmount reads a signed amount that may use ',' or '.' as decimal
// separator. When both appear, the right-most one is the decimal separator.
func NormalizeAmount(raw string) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '"':
			return -1
		}
		return r
	}, raw)
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// CleanDescription strips characters other than letters, digits, spaces,
// hyphens, underscores and periods, then collapses whitespace.
func CleanDescription(s string) string {
	s = disallowedDesc.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
