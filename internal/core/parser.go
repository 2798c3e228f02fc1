package core

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MessageKeyword is the case-sensitive marker of an expense message.
const MessageKeyword = "Expense:"

// expenseRe is not anchored: any text may precede the keyword.
var expenseRe = regexp.MustCompile(`Expense:\s*(\d+(?:\.\d{1,2})?)\s+([A-Za-z\s&]+)\s+(.+)`)

type wordSpan struct {
	start, end int
}

// ParseExpenseMessage extracts amount, category and note from a chat message
// of the form "Expense: <amount> <category> <note>".
//
// The category is resolved against the fixed category set first: the longest
// run of leading words that names a known category wins, so multi-word
// categories such as "Bills & Utilities" are kept whole. When no known
// category matches, the first word is taken as a free-text category.
//
// ok is false when the message does not follow the grammar; that is not an
// error condition, callers usually answer with usage help.
func ParseExpenseMessage(msg string) (ParsedExpenseInput, bool) {
	loc := expenseRe.FindStringSubmatchIndex(msg)
	if loc == nil {
		return ParsedExpenseInput{}, false
	}
	amount, err := ParseAmount(msg[loc[2]:loc[3]])
	if err != nil {
		return ParsedExpenseInput{}, false
	}
	category, note, known, ok := splitCategory(msg[loc[4]:loc[7]])
	if !ok {
		return ParsedExpenseInput{}, false
	}
	return ParsedExpenseInput{
		Amount:   amount,
		Category: category,
		Note:     note,
		Known:    known,
	}, true
}

// FormatExpenseMessage renders the canonical message for a parsed expense.
// Parsing the result yields the same input back.
func FormatExpenseMessage(in ParsedExpenseInput) string {
	return fmt.Sprintf("%s %s %s %s", MessageKeyword, in.Amount, in.Category, in.Note)
}

func splitCategory(tail string) (category, note string, known, ok bool) {
	words := wordSpans(tail)
	if len(words) < 2 {
		return "", "", false, false
	}
	// At least one word must remain for the note.
	for k := len(words) - 1; k >= 1; k-- {
		if !allCategoryWords(tail, words[:k]) {
			continue
		}
		if c, found := categoryIndex[categoryKey(tail[words[0].start:words[k-1].end])]; found {
			return c, strings.TrimSpace(tail[words[k-1].end:]), true, true
		}
	}
	first := words[0]
	if !isCategoryWord(tail[first.start:first.end]) {
		return "", "", false, false
	}
	return tail[first.start:first.end], strings.TrimSpace(tail[first.end:]), false, true
}

func wordSpans(s string) []wordSpan {
	var spans []wordSpan
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, wordSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, wordSpan{start: start, end: len(s)})
	}
	return spans
}

func allCategoryWords(s string, words []wordSpan) bool {
	for _, w := range words {
		if !isCategoryWord(s[w.start:w.end]) {
			return false
		}
	}
	return true
}

// isCategoryWord accepts ASCII letters and '&' only.
func isCategoryWord(w string) bool {
	if w == "" {
		return false
	}
	for i := 0; i < len(w); i++ {
		c := w[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '&') {
			return false
		}
	}
	return true
}
