// Package report renders stored tasks for people: a terminal tree and an xlsx workbook.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/phillip-england/locsetup/internal/tasks"
)

var (
	rootStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E51636"))
	taskStyle    = lipgloss.NewStyle().Bold(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	enumStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).MarginRight(1)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RenderTree draws Task -> Subtask -> display items, the same nesting the web page uses.
func RenderTree(snap tasks.Snapshot) string {
	root := tree.Root(rootStyle.Render(rootLabel(snap))).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)

	for _, t := range snap.Tasks {
		root.Child(taskTree(t))
	}

	var b strings.Builder
	b.WriteString(root.String())
	if len(snap.MissingHeaders) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("missing headers: " + strings.Join(snap.MissingHeaders, ", ")))
	}
	return b.String()
}

func rootLabel(snap tasks.Snapshot) string {
	label := fmt.Sprintf("Tasks (%d)", len(snap.Tasks))
	if snap.FileName != "" {
		label += " from " + snap.FileName
	}
	if enabled := snap.Features.Labels(); len(enabled) > 0 {
		label += " [" + strings.Join(enabled, ", ") + "]"
	}
	return label
}

func taskTree(t tasks.Task) *tree.Tree {
	name := t.Name()
	if name == "" {
		name = "(unnamed location)"
	}
	node := tree.Root(taskStyle.Render(name)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)

	for _, e := range t.Entries() {
		label := e.Subtask.Title + " " + keyStyle.Render("["+e.Key+"]")
		if len(e.Subtask.Display) == 0 {
			node.Child(label)
			continue
		}
		sub := tree.Root(label).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(enumStyle)
		for _, item := range e.Subtask.Display {
			sub.Child(item.Key + ": " + item.Value)
		}
		node.Child(sub)
	}
	return node
}
