package template

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"
)

// add adds two integers and returns the result.
// helper function for html template
func add(a, b int) int {
	return a + b
}

// ordinalDate returns a string with the ordinal number of the day
// helper function for html template
func ordinalDate(day int) string {
	suffix := "th"
	switch day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}

// formatDateTime formats a time.Time object into the specified string format.
// helper function for html template
func formatDateTime(t time.Time) string {
	day := ordinalDate(t.Day())
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%s %s %d %d:%02d:%02d %s", day, t.Month(), t.Year(), hour, t.Minute(), t.Second(), t.Format("pm"))
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"add":            add,
		"formatDateTime": formatDateTime,
	}
}

// NewTemplate parses the report template stored in templateFile.
func NewTemplate(templateFile string) (*template.Template, error) {
	return template.New(filepath.Base(templateFile)).
		Funcs(funcMap()).
		ParseFiles(templateFile)
}

// Parse parses a report template from text.
func Parse(name, text string) (*template.Template, error) {
	return template.New(name).
		Funcs(funcMap()).
		Parse(text)
}
