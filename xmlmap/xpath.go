// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xmlmap

import (
	"strings"

	"github.com/creachadair/sheetmap/xmlns"
)

// A pathStep is one resolved step of a map path.
type pathStep struct {
	ns   xmlns.ID
	name string
	attr bool
}

// parsePath parses the restricted XPath subset accepted by map paths:
// a leading '/', followed by steps "prefix:local" separated by '/',
// with an optional final attribute step "@prefix:local". No
// predicates, axes, wildcards, or functions are accepted.
//
// An unprefixed element step resolves through the default namespace
// registered on cxt; an unprefixed attribute step has no namespace.
// A prefix with no registered alias is an error.
func parsePath(cxt *xmlns.Context, path string) ([]pathStep, error) {
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return nil, &BadPathError{Path: path, Reason: "path must begin with '/'"}
	}
	if rest == "" {
		return nil, &BadPathError{Path: path, Reason: "empty path"}
	}

	var steps []pathStep
	for _, raw := range strings.Split(rest, "/") {
		if raw == "" {
			return nil, &BadPathError{Path: path, Reason: "empty path step"}
		}
		if len(steps) > 0 && steps[len(steps)-1].attr {
			return nil, &BadPathError{Path: path, Reason: "attribute step must be the final step"}
		}

		step := pathStep{}
		if cut, ok := strings.CutPrefix(raw, "@"); ok {
			step.attr = true
			raw = cut
			if raw == "" {
				return nil, &BadPathError{Path: path, Reason: "empty attribute name"}
			}
		}

		prefix, local, hasPrefix := strings.Cut(raw, ":")
		if !hasPrefix {
			local, prefix = prefix, ""
		}
		if local == "" {
			return nil, &BadPathError{Path: path, Reason: "empty name in step"}
		}
		step.name = local

		switch {
		case prefix != "":
			step.ns = cxt.ResolveString(prefix)
			if step.ns == xmlns.Unknown {
				return nil, &UnresolvedPrefixError{Path: path, Prefix: prefix}
			}
		case step.attr:
			// Unprefixed attributes have no namespace.
			step.ns = xmlns.Unknown
		default:
			// Unprefixed elements resolve through the default namespace,
			// which may itself be unset.
			step.ns = cxt.ResolveString("")
		}
		steps = append(steps, step)
	}
	return steps, nil
}
