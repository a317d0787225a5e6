// Package flagx contains helpers for parsing a subset of the command line,
// so several components can each read the flags they own.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, together with their
// values. Both "-f value" and "-f=value" forms are recognised. Flags listed
// in boolFlags never consume the following argument as a value.
func FilterArgs(args []string, allowed []string, boolFlags ...string) []string {
	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = false
	}
	for _, f := range boolFlags {
		if _, ok := known[f]; ok {
			known[f] = true
		}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if name, _, found := strings.Cut(arg, "="); found {
				if _, ok := known[name]; ok {
					out = append(out, arg)
				}
				continue
			}
		}

		isBool, ok := known[arg]
		if !ok {
			continue
		}
		out = append(out, arg)
		if !isBool && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// JsonConfigFlags returns the config file path given with -c or -config in
// args, or "" when neither is present. The last occurrence wins.
func JsonConfigFlags(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
