package main

import (
	"fmt"
	"strconv"
	"strings"
)

// cmdArgs is a parsed subcommand argument list.
type cmdArgs struct {
	positional []string
	values     map[string]string
	set        map[string]bool
}

// parseArgs splits args into positional words and "--name" options.
// Options listed in withValue consume the next word; "--name=value" also works.
func parseArgs(args []string, withValue ...string) (cmdArgs, error) {
	out := cmdArgs{values: map[string]string{}, set: map[string]bool{}}
	takes := map[string]bool{}
	for _, n := range withValue {
		takes[n] = true
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") || a == "--" {
			out.positional = append(out.positional, a)
			continue
		}
		name, val, hasVal := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		if takes[name] && !hasVal {
			if i+1 >= len(args) {
				return out, fmt.Errorf("--%s requires a value", name)
			}
			i++
			val, hasVal = args[i], true
		}
		if hasVal {
			out.values[name] = val
		}
		out.set[name] = true
	}
	return out, nil
}

// joined returns the positional words as one string.
func (c cmdArgs) joined() string {
	return strings.Join(c.positional, " ")
}

func (c cmdArgs) int(name string) (int, error) {
	v, ok := c.values[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("--%s: invalid number %q", name, v)
	}
	return n, nil
}
