package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/observ"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <library>",
	Short: "Print the manifest, files and declarations of a library",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().Bool("members", false, "list class members")
}

func runInspect(cmd *cobra.Command, args []string) error {
	members, err := cmd.Flags().GetBool("members")
	if err != nil {
		return err
	}
	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(cmd.Context(), configPath, observ.NewTimer())
	if err != nil {
		return err
	}
	lib, desc, err := ws.library(args[0])
	if err != nil {
		return err
	}
	printLibrary(cmd.OutOrStdout(), lib, desc, members)
	return nil
}

func printLibrary(out io.Writer, lib *klib.Library, desc *descriptor.Module, members bool) {
	fmt.Fprintf(out, "%s %s\n", headerColor.Sprint("library"), moduleColor.Sprint(lib.Name()))
	fmt.Fprintf(out, "  abi:     %s\n", lib.ABIVersion())
	fmt.Fprintf(out, "  interop: %t\n", lib.IsInterop())
	if !lib.Digest.IsZero() {
		fmt.Fprintf(out, "  digest:  %s\n", lib.Digest.Hex())
	}
	if deps := lib.Manifest.Dependencies; len(deps) > 0 {
		fmt.Fprintf(out, "  deps:    %s\n", strings.Join(deps, ", "))
	}

	fmt.Fprintln(out, headerColor.Sprintf("files: %d", lib.FileCount()))
	for _, f := range lib.Files {
		fmt.Fprintf(out, "  %s %s\n", f.Name, detailColor.Sprintf("(package %s, %d declarations)", f.Package, len(f.Declarations)))
	}

	fmt.Fprintln(out, headerColor.Sprint("declarations:"))
	for _, d := range desc.Descriptors() {
		if d.Parent != nil || d.Property != nil {
			continue
		}
		printDescriptor(out, d, 1, members)
	}
}

func printDescriptor(out io.Writer, d *descriptor.Descriptor, depth int, members bool) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(out, "%s%s %s %s%s\n", indent, d.Kind.SymbolKind(), d.Signature, visibilityName(d.Visibility), descriptorFlags(d))
	if !members || d.Kind != descriptor.KindClass {
		return
	}
	for _, m := range d.Members {
		printDescriptor(out, m, depth+1, members)
	}
}

func visibilityName(v ir.Visibility) string {
	switch v {
	case ir.Public:
		return "public"
	case ir.Internal:
		return detailColor.Sprint("internal")
	case ir.Private:
		return detailColor.Sprint("private")
	default:
		return detailColor.Sprint("local")
	}
}

func descriptorFlags(d *descriptor.Descriptor) string {
	var flags []string
	if d.IsInline {
		flags = append(flags, "inline")
	}
	if d.IsInner {
		flags = append(flags, "inner")
	}
	if d.IsValue {
		flags = append(flags, "value")
	}
	if d.IsConst {
		flags = append(flags, "const")
	}
	if d.IsCEnumOrCStruct {
		flags = append(flags, "cstruct")
	}
	if len(flags) == 0 {
		return ""
	}
	return " " + warnColor.Sprint("["+strings.Join(flags, " ")+"]")
}
