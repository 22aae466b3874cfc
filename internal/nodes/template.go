package nodes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/graphflow/engine/internal/domain/execution"
)

var templateRef = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// renderTemplate substitutes every "{{node_id.field...}}" reference in
// tmpl with the value at that path in pool, stringified. A reference to
// a path that is not yet populated renders as an empty string rather
// than erroring — a node upstream of a conditional branch may simply
// not have run.
func renderTemplate(tmpl string, pool *execution.VariablePool) string {
	return templateRef.ReplaceAllStringFunc(tmpl, func(m string) string {
		path := strings.Split(templateRef.FindStringSubmatch(m)[1], ".")
		v, ok := pool.Get(path)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", v)
	})
}
