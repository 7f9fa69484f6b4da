// Command assetpix inspects and converts game texture assets.
//
// Usage:
//
//	assetpix identify <file>...          Rank the formats that claim each file
//	assetpix decode [options] <file>     Asset → PNG/BMP/GIF (use "-" for stdin)
//	assetpix thumb [options] <file>      Asset → small PNG preview
//	assetpix encode [options] <image>    PNG/GIF/BMP → DDS
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/deepteams/assetpix"
	"github.com/deepteams/assetpix/internal/logging"
)

const version = "0.4.0"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	logLevel  string
	container string
	ext       string
	maxInfl   int64
}

func (g *globals) logger(cmd *cobra.Command) hclog.Logger {
	return logging.New("assetpix", g.logLevel, cmd.ErrOrStderr())
}

func (g *globals) session(cmd *cobra.Command) *assetpix.Session {
	o := assetpix.DefaultOptions()
	o.Logger = g.logger(cmd)
	if g.maxInfl > 0 {
		o.MaxInflated = g.maxInfl
	}
	return assetpix.NewSession(o)
}

// context builds the detection context for path. --ext overrides the
// extension taken from the file name.
func (g *globals) context(path string) assetpix.Context {
	ext := g.ext
	if ext == "" && path != "-" {
		ext = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return assetpix.Context{Container: g.container, Extension: ext}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "assetpix",
		Short:         "Decode and convert game texture assets",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", logging.Level(), "log level (trace, debug, info, warn, error)")
	pf.StringVar(&g.container, "container", "", "archive the file came from, e.g. mpq, afs, psarc")
	pf.StringVar(&g.ext, "ext", "", "extension to score with (default: from the file name)")
	pf.Int64Var(&g.maxInfl, "max-inflated", 0, "limit for decompressed payloads in bytes")

	root.AddCommand(
		newIdentifyCmd(g),
		newDecodeCmd(g),
		newThumbCmd(g),
		newEncodeCmd(g),
	)
	return root
}

// readInput reads path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// outputPath picks the destination: explicit, or the input name with ext.
func outputPath(out, input, ext string) string {
	if out != "" {
		return out
	}
	if input == "-" {
		return "output" + ext
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// writeOutput creates path (stdout for "-") and runs write on it. A
// partially written file is removed.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "assetpix: %v\n", err)
		os.Exit(1)
	}
}
