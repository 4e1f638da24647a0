package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/layout"
	"irlink/internal/linker"
	"irlink/internal/observ"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <library>",
	Short: "Print the field layouts of the public classes of a library",
	Long: `Layout links the public top-level classes of a library and computes their
field offsets for a target. Fields of cached libraries come from the
library cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().Bool("lazy-caches", false, "use library caches (overrides [link].lazy_caches)")
	layoutCmd.Flags().String("strategy", "", "deserialization strategy (overrides [link].strategy)")
	layoutCmd.Flags().String("target", layout.X86_64LinuxGNU().Triple, "ABI target triple")
}

// classLayout is the computed layout of one class.
type classLayout struct {
	class  *ir.Class
	fields []layout.FieldInfo
	layout layout.TypeLayout
}

func runLayout(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	triple, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	target, err := layout.ParseTarget(triple)
	if err != nil {
		return err
	}
	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	ws, err := loadWorkspace(cmd.Context(), configPath, timer)
	if err != nil {
		return err
	}
	_, desc, err := ws.library(args[0])
	if err != nil {
		return err
	}
	opts, err := linkOptions(cmd, ws)
	if err != nil {
		return err
	}
	l, err := ws.session(cmd.Context(), opts, timer)
	if err != nil {
		dumpRing(cmd)
		return err
	}
	defer l.Close()

	layouts, err := libraryLayouts(l, desc, layout.New(target, l.Builtins()))
	if err != nil {
		dumpRing(cmd)
		return err
	}
	printLayouts(cmd.OutOrStdout(), target, layouts)
	return nil
}

// libraryLayouts resolves the public top-level classes of desc and lays out
// their fields.
func libraryLayouts(l *linker.Linker, desc *descriptor.Module, engine *layout.Engine) ([]classLayout, error) {
	var classes []*ir.Class
	for _, d := range rootDescriptors(desc, nil) {
		if d.Kind != descriptor.KindClass {
			continue
		}
		decl, err := l.GetDeclaration(d.Signature, d.Kind.SymbolKind())
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", d.Name, err)
		}
		if c, ok := decl.(*ir.Class); ok {
			classes = append(classes, c)
		}
	}
	if err := l.LinkAll(); err != nil {
		return nil, err
	}

	md, err := l.ResolveModuleDeserializer(desc)
	if err != nil {
		return nil, err
	}
	cached, _ := md.(*linker.CachedModuleDeserializer)

	out := make([]classLayout, 0, len(classes))
	for _, c := range classes {
		var fields []layout.FieldInfo
		if cached != nil {
			if fields, err = cached.DeserializeClassFields(c); err != nil {
				return nil, err
			}
		} else {
			fields = layout.CollectFields(c)
		}
		tl, err := engine.ClassLayout(fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(c), err)
		}
		out = append(out, classLayout{class: c, fields: fields, layout: tl})
	}
	return out, nil
}

func printLayouts(out io.Writer, target layout.Target, layouts []classLayout) {
	fmt.Fprintln(out, headerColor.Sprintf("target %s", target.Triple))
	for _, cl := range layouts {
		fmt.Fprintf(out, "%s %s\n", moduleColor.Sprint(ir.QualifiedName(cl.class)),
			detailColor.Sprintf("size=%d align=%d", cl.layout.Size, cl.layout.Align))
		for i, f := range cl.fields {
			konst := ""
			if f.IsConst {
				konst = warnColor.Sprint(" const")
			}
			fmt.Fprintf(out, "  %4d  %s%s\n", cl.layout.FieldOffsets[i], f.Name, konst)
		}
	}
}
