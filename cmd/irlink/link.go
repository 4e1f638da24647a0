package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/ir"
	"irlink/internal/linker"
	"irlink/internal/observ"
	"irlink/internal/testkit"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link the current module against its libraries",
	Long: `Link deserializes every library header, resolves the public top-level
declarations of the current module, drains the work queues and stubs the
remaining unbound symbols`,
	Args: cobra.NoArgs,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().Bool("lazy-caches", false, "use library caches (overrides [link].lazy_caches)")
	linkCmd.Flags().String("strategy", "", "deserialization strategy: all|referenced|inline-bodies|headers (overrides [link].strategy)")
	linkCmd.Flags().StringSlice("root", nil, "link only these top-level declarations of the current module")
	linkCmd.Flags().Bool("verify", false, "check IR invariants of the linked modules")
}

func runLink(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	defer func() {
		if timings {
			fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
		}
	}()

	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(cmd.Context(), configPath, timer)
	if err != nil {
		return err
	}
	opts, err := linkOptions(cmd, ws)
	if err != nil {
		return err
	}
	roots, err := cmd.Flags().GetStringSlice("root")
	if err != nil {
		return err
	}
	verify, err := cmd.Flags().GetBool("verify")
	if err != nil {
		return err
	}

	l, err := linkWorkspace(cmd.Context(), ws, opts, roots, timer)
	if err != nil {
		dumpRing(cmd)
		return err
	}
	defer l.Close()

	if verify {
		if err := timer.Measure("verify", func() error { return verifyLinked(l) }); err != nil {
			return err
		}
	}
	printLinkReport(cmd.OutOrStdout(), ws, l)
	return nil
}

// linkOptions applies the command flags over the configured settings.
func linkOptions(cmd *cobra.Command, ws *workspace) (sessionOptions, error) {
	opts := ws.options()
	if cmd.Flags().Changed("lazy-caches") {
		lazy, err := cmd.Flags().GetBool("lazy-caches")
		if err != nil {
			return opts, err
		}
		opts.lazyCaches = lazy
	}
	if cmd.Flags().Changed("strategy") {
		value, err := cmd.Flags().GetString("strategy")
		if err != nil {
			return opts, err
		}
		if opts.strategy, err = deser.ParseStrategy(value); err != nil {
			return opts, err
		}
	}
	if opts.lazyCaches {
		caches, err := ws.openCaches()
		if err != nil {
			return opts, err
		}
		opts.caches = caches
	}
	return opts, nil
}

// linkWorkspace runs a whole link session.
func linkWorkspace(ctx context.Context, ws *workspace, opts sessionOptions, roots []string, timer *observ.Timer) (*linker.Linker, error) {
	l, err := ws.session(ctx, opts, timer)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			l.Close()
		}
	}()

	if err := timer.Measure("resolve roots", func() error {
		current := ws.modules[ws.cfg.Link.Current]
		if current == nil {
			if len(roots) > 0 {
				return fmt.Errorf("--root needs [link].current")
			}
			return nil
		}
		for _, d := range rootDescriptors(current, roots) {
			if _, err := l.GetDeclaration(d.Signature, d.Kind.SymbolKind()); err != nil {
				return fmt.Errorf("root %s: %w", d.Name, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if err := timer.Measure("link", l.LinkAll); err != nil {
		return nil, err
	}
	if opts.lazyCaches {
		// Cached libraries only provide stubs; callers need the bodies of
		// the inline functions they reach.
		if err := timer.Measure("inline bodies", func() error {
			_, err := l.ReconstructInlineFunctions()
			return err
		}); err != nil {
			return nil, err
		}
	}
	if err := timer.Measure("post-process", l.PostProcess); err != nil {
		return nil, err
	}
	ok = true
	return l, nil
}

// rootDescriptors lists the public top-level declarations of m, restricted
// to names when it is non-empty.
func rootDescriptors(m *descriptor.Module, names []string) []*descriptor.Descriptor {
	var out []*descriptor.Descriptor
	for _, d := range m.Descriptors() {
		if d.Parent != nil || d.Property != nil || d.Visibility != ir.Public || !d.Signature.IsPublic() {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, d.Name) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func verifyLinked(l *linker.Linker) error {
	for _, d := range l.Deserializers() {
		if err := testkit.CheckModuleInvariants(d.ModuleFragment()); err != nil {
			return fmt.Errorf("module %s: %w", d.Descriptor().Name, err)
		}
	}
	return testkit.CheckFragmentInvariants(l.Stubs().Fragments())
}

func countDeclarations(m *ir.Module) int {
	n := 0
	for _, f := range m.Files {
		n += len(f.Declarations)
	}
	return n
}

func printLinkReport(out io.Writer, ws *workspace, l *linker.Linker) {
	deserializers := l.Deserializers()
	width := len("module")
	for _, d := range deserializers {
		width = max(width, len(d.Descriptor().Name))
	}

	fmt.Fprintf(out, "%s\n", headerColor.Sprintf("%-*s  %-8s  %5s  %12s", width, "module", "category", "files", "declarations"))
	for _, d := range deserializers {
		name := d.Descriptor().Name
		fragment := d.ModuleFragment()
		line := fmt.Sprintf("%-*s", width, name)
		if name == ws.cfg.Link.Current {
			line = moduleColor.Sprint(line)
		}
		category := d.Category().String()
		pad := strings.Repeat(" ", max(0, 8-len(category)))
		fmt.Fprintf(out, "%s  %s%s  %5d  %12d\n", line, tintCategory(category), pad, len(fragment.Files), countDeclarations(fragment))
	}

	stubs := 0
	for _, f := range l.Stubs().Fragments() {
		stubs += len(f.Declarations)
	}
	fmt.Fprintf(out, "%s %d symbols, %d stubs in %d fragments\n",
		okColor.Sprint("linked:"), l.Symbols().Len(), stubs, len(l.Stubs().Fragments()))
}
