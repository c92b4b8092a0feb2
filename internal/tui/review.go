// Package tui is the interactive review of an import preview.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/jaskledger/internal/domain"
	"github.com/jask/jaskledger/internal/service"
)

// Committer commits reviewed drafts.
type Committer interface {
	Commit(ctx context.Context, drafts []service.Draft) (service.IngestResult, error)
}

type mode string

const (
	modeList         mode = "list"
	modeEditCategory mode = "editCategory"
	modeDone         mode = "done"
)

// Review lists drafts for acceptance and commits the accepted ones.
type Review struct {
	ctx       context.Context
	committer Committer
	preview   service.Preview
	currency  string
	dateFmt   string

	cursor      int
	mode        mode
	inputBuffer string
	status      string
	committing  bool

	result  *service.IngestResult
	err     error
	aborted bool
}

type commitDoneMsg struct {
	Result service.IngestResult
}

type errMsg struct{ error }

// NewReview builds the model. currency and dateFormat come from the UI config.
func NewReview(ctx context.Context, c Committer, p service.Preview, currency, dateFormat string) *Review {
	if dateFormat == "" {
		dateFormat = "02/01/2006"
	}
	return &Review{ctx: ctx, committer: c, preview: p, currency: currency, dateFmt: dateFormat, mode: modeList}
}

// Drafts returns the drafts with the user's edits applied.
func (r *Review) Drafts() []service.Draft { return r.preview.Drafts }

// Result is set once a commit finished.
func (r *Review) Result() (service.IngestResult, bool) {
	if r.result == nil {
		return service.IngestResult{}, false
	}
	return *r.result, true
}

// Err is the commit error, if any.
func (r *Review) Err() error { return r.err }

// Aborted reports whether the user quit without committing.
func (r *Review) Aborted() bool { return r.aborted }

func (r *Review) Init() tea.Cmd { return nil }

func (r *Review) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if r.mode == modeEditCategory {
			return r.handleEditKey(m)
		}
		return r.handleListKey(m)
	case commitDoneMsg:
		r.committing = false
		r.result = &m.Result
		r.mode = modeDone
		r.status = fmt.Sprintf("imported %d, skipped %d, errors %d", m.Result.Imported, m.Result.Skipped, len(m.Result.Errors))
		return r, tea.Quit
	case errMsg:
		r.committing = false
		r.err = m.error
		r.status = "error: " + m.Error()
	}
	return r, nil
}

func (r *Review) handleListKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if r.committing {
		return r, nil
	}
	drafts := r.preview.Drafts
	switch m.String() {
	case "q", "ctrl+c", "esc":
		r.aborted = true
		return r, tea.Quit
	case "up", "k":
		if r.cursor > 0 {
			r.cursor--
		}
	case "down", "j":
		if r.cursor < len(drafts)-1 {
			r.cursor++
		}
	case " ":
		if len(drafts) > 0 {
			drafts[r.cursor].Accepted = !drafts[r.cursor].Accepted
		}
	case "t":
		if len(drafts) > 0 {
			drafts[r.cursor].Type = nextType(drafts[r.cursor].Type)
		}
	case "a":
		for i := range drafts {
			drafts[i].Accepted = true
		}
	case "n":
		for i := range drafts {
			drafts[i].Accepted = false
		}
	case "e":
		if len(drafts) > 0 {
			r.mode = modeEditCategory
			r.inputBuffer = drafts[r.cursor].Category
		}
	case "enter":
		r.committing = true
		r.status = "committing..."
		return r, r.commitCmd()
	}
	return r, nil
}

func (r *Review) handleEditKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyCtrlC:
		r.aborted = true
		return r, tea.Quit
	case tea.KeyEsc:
		r.mode = modeList
		r.inputBuffer = ""
	case tea.KeyEnter:
		d := &r.preview.Drafts[r.cursor]
		cat := strings.TrimSpace(r.inputBuffer)
		if cat != d.Category {
			d.Category = cat
			d.Subcategory = ""
		}
		r.mode = modeList
		r.inputBuffer = ""
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if rs := []rune(r.inputBuffer); len(rs) > 0 {
			r.inputBuffer = string(rs[:len(rs)-1])
		}
	case tea.KeySpace:
		r.inputBuffer += " "
	case tea.KeyRunes:
		r.inputBuffer += string(m.Runes)
	}
	return r, nil
}

// nextType flips between income and expense; transfers need a destination
// and are not offered here.
func nextType(t domain.TransactionType) domain.TransactionType {
	if t == domain.Income {
		return domain.Expense
	}
	return domain.Income
}

func (r *Review) commitCmd() tea.Cmd {
	drafts := append([]service.Draft(nil), r.preview.Drafts...)
	return func() tea.Msg {
		res, err := r.committer.Commit(r.ctx, drafts)
		if err != nil {
			return errMsg{err}
		}
		return commitDoneMsg{Result: res}
	}
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle    = lipgloss.NewStyle().Bold(true)
	rejectedStyle  = lipgloss.NewStyle().Faint(true)
	duplicateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	expenseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	incomeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func (r *Review) View() string {
	var b strings.Builder
	accepted := 0
	for _, d := range r.preview.Drafts {
		if d.Accepted {
			accepted++
		}
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Review import: %d lines, %d accepted, %d skipped", len(r.preview.Drafts), accepted, len(r.preview.Skipped))))
	b.WriteString("\n")
	for i, d := range r.preview.Drafts {
		b.WriteString(r.renderDraft(i, d))
		b.WriteString("\n")
	}
	if len(r.preview.Skipped) > 0 {
		b.WriteString("\nSkipped lines:\n")
		for _, s := range r.preview.Skipped {
			fmt.Fprintf(&b, "  %4d  %-16s %s\n", s.Line, s.Reason, s.Text)
		}
	}
	if r.mode == modeEditCategory {
		fmt.Fprintf(&b, "\nCategory: %s_\n[enter] Save  [esc] Cancel", r.inputBuffer)
	} else {
		b.WriteString("\n[j/k] Move  [space] Accept/reject  [t] Income/expense  [e] Category  [a] Accept all  [n] Reject all  [enter] Commit  [q] Abort")
	}
	if r.status != "" {
		b.WriteString("\n" + r.status)
	}
	return b.String()
}

func (r *Review) renderDraft(i int, d service.Draft) string {
	marker := " "
	if i == r.cursor {
		marker = "▶"
	}
	check := "[ ]"
	if d.Accepted {
		check = "[x]"
	}
	amount := fmt.Sprintf("%s%10s", r.currency, d.Candidate.Amount.StringFixed(2))
	if d.Type == domain.Expense {
		amount = expenseStyle.Render("-" + amount)
	} else {
		amount = incomeStyle.Render("+" + amount)
	}
	category := d.Category
	if category == "" {
		category = "-"
	}
	if d.Subcategory != "" {
		category += " / " + d.Subcategory
	}
	confidence := ""
	if d.Suggestion.AIProcessed {
		confidence = fmt.Sprintf(" %3.0f%%", d.Suggestion.Confidence*100)
	}
	line := fmt.Sprintf("%s %s %s  %-36s %s  %-24s%s", marker, check, d.Candidate.Date.Format(r.dateFmt),
		truncate(d.Candidate.Description, 36), amount, category, confidence)
	if d.Duplicate() {
		line += duplicateStyle.Render("  possible duplicate")
	}
	switch {
	case i == r.cursor:
		return cursorStyle.Render(line)
	case !d.Accepted:
		return rejectedStyle.Render(line)
	}
	return line
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
