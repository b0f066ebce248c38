package gradio

import (
	"strings"

	"gradio/pkg/types"
)

func routeName(route string) string { return strings.TrimLeft(route, "/") }

// fnIndex maps a route name to the function index the queue expects. The
// first dependency whose api name matches wins; one that declares no id is
// addressed by its position in the table.
func fnIndex(deps []types.Dependency, route string) (int64, error) {
	name := routeName(route)
	if name != "" {
		for i, d := range deps {
			if d.APIName != name {
				continue
			}
			if d.ID == types.UnsetDependencyID {
				return int64(i), nil
			}
			return d.ID, nil
		}
	}
	return 0, newError(KindRouteNotFound, "route", "/"+name, nil)
}
