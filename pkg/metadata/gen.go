package metadata

import (
	"bytes"
	"fmt"
	"strconv"
)

// GenerateGo renders the resolved constants as a Go source file for the
// given package name. The constant names are kept exactly as they appear
// in the header so generated code greps against the SDK documentation.
func (m *Metadata) GenerateGo(pkg string) []byte {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by eibuild from model_metadata.h. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)

	buf.WriteString("const (\n")
	for _, c := range m.Constants() {
		switch c.Kind {
		case KindString:
			fmt.Fprintf(&buf, "\t%s = %s\n", c.Name, strconv.Quote(c.Str))
		case KindInt:
			fmt.Fprintf(&buf, "\t%s = %d\n", c.Name, c.Int)
		case KindFloat:
			fmt.Fprintf(&buf, "\t%s = %s\n", c.Name,
				strconv.FormatFloat(float64(c.Float), 'g', -1, 32))
		}
	}
	buf.WriteString(")\n")

	if len(m.Unresolved) > 0 {
		buf.WriteString("\n// Definitions that did not resolve to a value:\n")
		for _, d := range m.Unresolved {
			fmt.Fprintf(&buf, "// %s = %s\n", d.Name, d.Raw)
		}
	}
	return buf.Bytes()
}
