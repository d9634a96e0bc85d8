package preview

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/vuuvv/rplcui/core"
)

const unnamedPacket = "UnnamedPacket"

var funcMap = template.FuncMap{
	"pad": func(width int, s string) string {
		if len(s) >= width {
			return s
		}
		return s + strings.Repeat(" ", width-len(s))
	},
}

var eHeader = template.Must(template.New("tHeader").Funcs(funcMap).Parse(tHeader))

const tHeader = `// Live preview of {{.Name}}. The compiler output is authoritative.
#ifndef {{.Guard}}
#define {{.Guard}}

#include <cstdint>
{{if .Namespace}}
namespace {{.Namespace}} {
{{end}}
struct {{if .Packed}}__attribute__((packed)) {{end}}{{.Name}} {
    {{.CommandID}}
{{range .Members}}
    {{pad $.DeclWidth .Decl}} // {{.Note}}
{{- end}}
};
{{if .SizeKnown}}
static_assert(sizeof({{.Name}}) == {{.Size}}, "{{.Name}} layout mismatch");
{{end}}
{{- if .Namespace}}
} // namespace {{.Namespace}}
{{end}}
#endif // {{.Guard}}
`

type headerMember struct {
	Decl string
	Note string
}

type headerData struct {
	Name      string
	Guard     string
	Namespace string
	Packed    bool
	CommandID string
	Members   []headerMember
	DeclWidth int
	SizeKnown bool
	Size      int
}

func buildHeaderData(cfg *core.Configuration) *headerData {
	d := &headerData{
		Name:   oneLine(cfg.PacketName),
		Guard:  oneLine(cfg.HeaderGuardOrDefault()),
		Packed: cfg.Packed,
	}
	if d.Name == "" {
		d.Name = unnamedPacket
	}
	if cfg.Namespace != nil {
		d.Namespace = oneLine(*cfg.Namespace)
	}
	if id, err := core.ParseCommandID(cfg.CommandID); err == nil {
		d.CommandID = fmt.Sprintf("static constexpr uint16_t kCommandId = %s;", core.FormatCommandID(id))
	} else {
		d.CommandID = fmt.Sprintf("// command id %q is not a valid uint16", cfg.CommandID)
	}

	layout := core.Layout(cfg)
	for i, f := range cfg.Fields {
		m := headerMember{Decl: fmt.Sprintf("%s %s;", orPlaceholder(f.Type, "/*type*/"), orPlaceholder(f.Name, "/*name*/"))}
		fl := layout.Fields[i]
		if fl.Known {
			m.Note = fmt.Sprintf("offset %d, size %d", fl.Offset, fl.Size)
			if fl.Padding > 0 {
				m.Note += fmt.Sprintf(", %d byte padding before", fl.Padding)
			}
		} else {
			m.Note = "offset unknown"
		}
		if c := oneLine(f.Comment); c != "" {
			m.Note = c + " (" + m.Note + ")"
		}
		if len(m.Decl) > d.DeclWidth {
			d.DeclWidth = len(m.Decl)
		}
		d.Members = append(d.Members, m)
	}
	d.SizeKnown = layout.Complete && len(cfg.Fields) > 0
	d.Size = layout.Size
	return d
}

// RenderSource 生成头文件预览, 仅供参考, 与编译器的输出可以不同. 永远不会失败.
func RenderSource(cfg core.Configuration) string {
	var buf bytes.Buffer
	if err := eHeader.Execute(&buf, buildHeaderData(&cfg)); err != nil {
		return fmt.Sprintf("// preview unavailable: %s\n", oneLine(err.Error()))
	}
	return buf.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orPlaceholder(s, placeholder string) string {
	s = oneLine(s)
	if s == "" {
		return placeholder
	}
	return s
}
