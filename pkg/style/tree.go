package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/remake-build/remake/pkg/graph"
)

var (
	targetStyle  = lipgloss.NewStyle().Bold(true)
	groundStyle  = lipgloss.NewStyle().Faint(true)
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	virtualStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Italic(true)
	branchStyle  = lipgloss.NewStyle().Faint(true)
)

// RenderTree renders a resolved dependency tree for the graph command.
func RenderTree(tree *graph.Tree) string {
	var sb strings.Builder
	renderNode(&sb, tree, "", true, true)
	return sb.String()
}

func renderNode(sb *strings.Builder, node *graph.Tree, prefix string, last, root bool) {
	branch := ""
	childPrefix := prefix
	if !root {
		if last {
			branch = prefix + "└── "
			childPrefix = prefix + "    "
		} else {
			branch = prefix + "├── "
			childPrefix = prefix + "│   "
		}
	}

	sb.WriteString(branchStyle.Render(branch))
	sb.WriteString(renderTarget(node))
	sb.WriteString("\n")

	for i, dep := range node.Deps {
		renderNode(sb, dep, childPrefix, i == len(node.Deps)-1, false)
	}
}

func renderTarget(node *graph.Tree) string {
	label := node.Target.String()
	switch {
	case node.Target.Virtual():
		label = virtualStyle.Render(label)
	case node.Rule == nil:
		label = groundStyle.Render(label)
	default:
		label = targetStyle.Render(label)
	}

	if node.Rule != nil {
		if b := node.Rule.Builder(); b != nil && b.Name() != "" {
			label += " " + ruleStyle.Render("("+b.Name()+")")
		}
	}
	return label
}
