package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/fioncat/vbrowse/preview"
)

// Preview writes the preview panel of plan. Folder plans are not previews
// and write nothing.
func Preview(w io.Writer, plan *preview.Plan) {
	if plan == nil || plan.Navigated || plan.Strategy == preview.StrategyNone {
		return
	}

	title := fmt.Sprintf("%s (%s, %s)", plan.Entry.Name, plan.Kind, plan.Entry.DisplaySize())
	fmt.Fprintln(w, color.New(color.Bold).Sprint(title))
	fmt.Fprintln(w, strings.Repeat("-", 40))

	switch {
	case plan.Placeholder != "":
		fmt.Fprintln(w, color.New(color.Faint).Sprint(plan.Placeholder))

	case plan.Strategy == preview.StrategyInlineImage:
		fmt.Fprintf(w, "Image: %s\n", plan.AccessURL)

	case plan.Strategy == preview.StrategyInlineText:
		fmt.Fprint(w, plan.Content)
		if !strings.HasSuffix(plan.Content, "\n") {
			fmt.Fprintln(w)
		}
		if plan.Truncated {
			fmt.Fprintln(w, color.YellowString("... (truncated)"))
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, action := range plan.Actions {
		fmt.Fprintf(w, "%s: %s\n", color.CyanString(action.Label), action.URL)
	}
}
