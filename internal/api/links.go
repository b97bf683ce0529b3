package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/sessions": {
		`</api/v1/info>; rel="info"`,
	},
	"/api/v1/sessions/{id}": {
		`</api/v1/sessions>; rel="collection"`,
	},
}

// sessionLinks are the control endpoints of one session, relative to its URL.
var sessionLinks = []string{"touches", "tick", "navigate", "viewport", "size", "limits", "events", "pointer"}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			self := ctx.URL().Path
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, self))
			if op.Path == "/api/v1/sessions/{id}" {
				for _, rel := range sessionLinks {
					ctx.AppendHeader("Link", fmt.Sprintf(`<%s/%s>; rel="%s"`, self, rel, rel))
				}
			}
		}

		return v, nil
	}
}
