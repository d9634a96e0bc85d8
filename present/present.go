// Package present decides what the result pane shows for a compilation result.
package present

import (
	"github.com/vuuvv/rplcui/bridge"
	"github.com/vuuvv/rplcui/core"
)

const FileExtension = ".hpp"

const (
	PlaceholderNotReady = "Waiting for the compiler module..."
	PlaceholderLoading  = "Compiling..."
	PlaceholderErrors   = "Fix the errors to see the generated code"
	PlaceholderIdle     = "Waiting for code generation..."
)

// View 结果面板的内容
type View struct {
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	WarningCount int      `json:"warningCount"`
	Source       string   `json:"source,omitempty"`
	ShowSource   bool     `json:"showSource"`
	CanSave      bool     `json:"canSave"`
	Filename     string   `json:"filename,omitempty"`
	Placeholder  string   `json:"placeholder,omitempty"`
}

func Filename(packetName string) string {
	return packetName + FileExtension
}

// Build 有任何错误时不显示代码, 也不能保存
func Build(diagnostics core.Diagnostics, source string, packetName string) *View {
	v := &View{Errors: []string{}, Warnings: []string{}}
	for _, d := range diagnostics {
		switch d.Severity {
		case core.SeverityWarning:
			v.Warnings = append(v.Warnings, d.Message)
		default:
			v.Errors = append(v.Errors, d.Message)
		}
	}
	v.WarningCount = len(v.Warnings)

	switch {
	case len(v.Errors) > 0:
		v.Placeholder = PlaceholderErrors
	case source == "":
		v.Placeholder = PlaceholderIdle
	default:
		v.Source = source
		v.ShowSource = true
		v.CanSave = true
		v.Filename = Filename(packetName)
	}
	return v
}

func FromResult(result *bridge.Result) *View {
	if result == nil {
		return Idle()
	}
	return Build(result.Diagnostics, result.Source, result.PacketName)
}

func Idle() *View {
	return &View{Errors: []string{}, Warnings: []string{}, Placeholder: PlaceholderIdle}
}

// WithStatus 编译器未就绪或正在编译时替换占位文字并隐藏代码
func (v *View) WithStatus(ready bool, loading bool) *View {
	out := *v
	switch {
	case !ready:
		out.Placeholder = PlaceholderNotReady
	case loading:
		out.Placeholder = PlaceholderLoading
	default:
		return &out
	}
	out.ShowSource = false
	out.CanSave = false
	return &out
}
