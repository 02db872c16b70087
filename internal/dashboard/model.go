// Package dashboard implements the live bubbletea view over a running
// pipeline (observability's bus events in, a terminal view out).
//
// Grounded on internal/tui/dashboard's Model/Update/View split, adapted
// from "poll a registry of pipelines and their cached statuses" to "drain
// a single observability.Bus subscription for the one run underway",
// since pipelinectl dashboards exactly one in-flight run rather than a
// saved set of pipelines.
package dashboard

import (
	"sort"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/runtime"
)

// NodeView is one node's accumulated state as observed through the bus.
type NodeView struct {
	Status   string // pending, running, succeeded, restarted, failed, skipped
	ItemsIn  int
	ItemsOut int
	Retries  int
	LastErr  error
}

// Model is the dashboard's bubbletea model for a single pipeline run.
type Model struct {
	events      <-chan observability.Event
	unsubscribe func()
	done        <-chan RunOutcome

	spinner spinner.Model

	nodes []string
	views map[string]*NodeView

	started  bool
	finished bool
	outcome  RunOutcome

	width, height int
	quitting      bool
}

// RunOutcome is what dashboard.go sends once the scheduler's Run call
// returns, carrying the authoritative per-node result the bus itself never
// publishes (node success has no dedicated event kind).
type RunOutcome struct {
	Result *runtime.RunResult
	Err    error
}

// NewModel returns a Model that drains events until done delivers a
// RunOutcome, at which point every node listed in result.NodeResults takes
// its final status from there.
func NewModel(events <-chan observability.Event, unsubscribe func(), done <-chan RunOutcome) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		events:      events,
		unsubscribe: unsubscribe,
		done:        done,
		spinner:     s,
		views:       make(map[string]*NodeView),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), waitForOutcome(m.done))
}

func (m *Model) viewFor(id string) *NodeView {
	if v, ok := m.views[id]; ok {
		return v
	}
	v := &NodeView{Status: "pending"}
	m.views[id] = v
	m.nodes = append(m.nodes, id)
	sort.Strings(m.nodes)
	return v
}
