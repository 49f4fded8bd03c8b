package core

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// HistoryEntry is one month of income against spending.
type HistoryEntry struct {
	Month      MonthKey `json:"month"`
	ShortLabel string   `json:"short_label"`
	LongLabel  string   `json:"long_label"`
	Income     Money    `json:"income"`
	Expenses   Money    `json:"expenses"`
	Savings    Money    `json:"savings"`
}

type History struct {
	Entries    []HistoryEntry `json:"entries"`
	TotalSaved Money          `json:"total_saved"`
}

// es-ES month names as rendered by the browser locale tables.
var (
	shortMonthNames = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}
	longMonthNames  = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// ShortMonthLabel renders "Sept" for September.
func ShortMonthLabel(k MonthKey) string {
	if k.Month < time.January || k.Month > time.December {
		return k.String()
	}
	return capitalize(shortMonthNames[k.Month-1])
}

// LongMonthLabel renders "Septiembre de 2025".
func LongMonthLabel(k MonthKey) string {
	if k.Month < time.January || k.Month > time.December {
		return k.String()
	}
	var b strings.Builder
	b.WriteString(capitalize(longMonthNames[k.Month-1]))
	b.WriteString(" de ")
	b.WriteString(strconv.Itoa(k.Year))
	return b.String()
}

// AssembleHistory merges month incomes and expenses into ascending entries.
// A month appears when it has an income record or at least one expense;
// months with neither are left out rather than zero filled. When a month's
// income is missing or zero, defaultIncome stands in.
func AssembleHistory(periods []BudgetPeriod, expenses []Expense, defaultIncome Money) History {
	type acc struct {
		income   Money
		expenses Money
	}
	months := make(map[MonthKey]*acc)
	get := func(k MonthKey) *acc {
		a, ok := months[k]
		if !ok {
			a = &acc{}
			months[k] = a
		}
		return a
	}
	for _, p := range periods {
		get(p.Month).income = p.Income
	}
	for _, e := range expenses {
		a := get(MonthKeyOf(e.Date))
		a.expenses = a.expenses.Add(e.Amount)
	}

	keys := make([]MonthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	h := History{Entries: make([]HistoryEntry, 0, len(keys))}
	for _, k := range keys {
		a := months[k]
		income := a.income
		if !income.IsPositive() {
			income = defaultIncome
		}
		savings := income.Sub(a.expenses)
		h.Entries = append(h.Entries, HistoryEntry{
			Month:      k,
			ShortLabel: ShortMonthLabel(k),
			LongLabel:  LongMonthLabel(k),
			Income:     income,
			Expenses:   a.expenses,
			Savings:    savings,
		})
		h.TotalSaved = h.TotalSaved.Add(savings)
	}
	return h
}
