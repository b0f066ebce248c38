package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gradio/pkg/gradio"
	"gradio/pkg/types"
)

// runPredict coerces args through the route's schema, predicts and prints one
// "name: value" line per declared return.
func runPredict(ctx context.Context, cmd *cobra.Command, cfg *Config, app, route string, args []string) error {
	s, err := cfg.open(ctx, cmd, app)
	if err != nil {
		return err
	}
	defer s.close()

	route = "/" + strings.TrimLeft(route, "/")
	ep, err := s.client.Endpoint(route)
	if err != nil {
		return err
	}
	inputs, err := gradio.ArgsFromStrings(ep, args)
	if err != nil {
		return err
	}
	outs, err := s.client.Predict(ctx, route, inputs)
	if err != nil {
		return err
	}

	w := cfg.Stdout
	for i, ret := range ep.Returns {
		if i >= len(outs) {
			return fmt.Errorf("%s: missing return value %d of %d", route, i+1, len(ep.Returns))
		}
		name := ret.Name()
		o := outs[i]
		if o.IsFile() {
			f, _ := o.AsFile()
			if s.outputDir == "" {
				printResult(w, name, f.URL)
				continue
			}
			dst := filepath.Join(s.outputDir, name+"."+gradio.SuggestExtension(f))
			n, err := s.client.SaveFile(ctx, f, dst)
			if err != nil {
				return err
			}
			s.log.Debug().Str("path", dst).Int64("bytes", n).Msg("saved output")
			printResult(w, name, dst)
			continue
		}
		v, _ := o.AsValue()
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			buf.Reset()
			buf.Write(v)
		}
		printResult(w, name, buf.String())
	}
	return nil
}

func printResult(w io.Writer, name, value string) {
	color.New(color.FgCyan).Fprintf(w, "%s:", name)
	fmt.Fprintf(w, " %s\n", value)
}

// runList prints every named route with its parameters and returns.
func runList(ctx context.Context, cmd *cobra.Command, cfg *Config, app string) error {
	s, err := cfg.open(ctx, cmd, app)
	if err != nil {
		return err
	}
	defer s.close()

	info := s.client.APIInfo()
	routes := make([]string, 0, len(info.NamedEndpoints))
	for r := range info.NamedEndpoints {
		routes = append(routes, r)
	}
	sort.Strings(routes)

	w := cfg.Stdout
	green := color.New(color.FgGreen)
	fmt.Fprintf(w, "API Spec for %s:\n", app)
	for _, r := range routes {
		ep := info.NamedEndpoints[r]
		green.Fprintf(w, "\t%s\n", r)
		fmt.Fprintln(w, "\t\tParameters:")
		printData(w, ep.Parameters)
		fmt.Fprintln(w, "\t\tReturns:")
		printData(w, ep.Returns)
	}
	return nil
}

func printData(w io.Writer, data []types.APIData) {
	for _, d := range data {
		fmt.Fprintf(w, "\t\t\t%-20s ( %-8s ) %s\n", d.Name(), d.PythonType.Type, d.Type.Description)
	}
}
