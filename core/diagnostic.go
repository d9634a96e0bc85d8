package core

import "fmt"

type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
)

// Diagnostic 编译器报告的一条问题
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func Errorf(format string, a ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, a...)}
}

func Warnf(format string, a ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, a...)}
}

type Diagnostics []Diagnostic

func (d Diagnostics) HasError() bool {
	for _, item := range d {
		if item.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (d Diagnostics) Errors() Diagnostics {
	return d.filter(SeverityError)
}

func (d Diagnostics) Warnings() Diagnostics {
	return d.filter(SeverityWarning)
}

func (d Diagnostics) filter(severity Severity) Diagnostics {
	var out Diagnostics
	for _, item := range d {
		if item.Severity == severity {
			out = append(out, item)
		}
	}
	return out
}
