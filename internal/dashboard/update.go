package dashboard

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/runtime"
)

// eventMsg wraps one observability.Event for the bubbletea update loop.
type eventMsg observability.Event

// busClosedMsg signals the bus subscription channel was closed.
type busClosedMsg struct{}

// outcomeMsg wraps the scheduler's final RunOutcome.
type outcomeMsg RunOutcome

func waitForEvent(ch <-chan observability.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return busClosedMsg{}
		}
		return eventMsg(e)
	}
}

func waitForOutcome(ch <-chan RunOutcome) tea.Cmd {
	return func() tea.Msg {
		o, ok := <-ch
		if !ok {
			return nil
		}
		return outcomeMsg(o)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.unsubscribe != nil {
				m.unsubscribe()
			}
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.applyEvent(observability.Event(msg))
		return m, waitForEvent(m.events)

	case busClosedMsg:
		return m, nil

	case outcomeMsg:
		m.finished = true
		m.outcome = RunOutcome(msg)
		m.reconcile()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	default:
		return m, nil
	}
}

func (m *Model) applyEvent(e observability.Event) {
	switch e.Kind {
	case observability.EventPipelineStart:
		m.started = true
		return
	case observability.EventPipelineEnd:
		return
	}

	if e.NodeID == "" {
		return
	}
	v := m.viewFor(e.NodeID)

	switch e.Kind {
	case observability.EventNodeItemsIn:
		if v.Status == "pending" {
			v.Status = "running"
		}
		v.ItemsIn += e.Count
	case observability.EventNodeItemsOut:
		v.ItemsOut += e.Count
	case observability.EventNodeError:
		v.LastErr = e.Err
	case observability.EventNodeRetry:
		v.Retries = e.Attempt
		v.Status = "running"
	case observability.EventNodeRestarted:
		v.Status = "restarted"
	case observability.EventNodeSkipped:
		v.Status = "skipped"
		v.LastErr = e.Err
	}
}

// reconcile stamps every node's final status from the scheduler's
// authoritative NodeResult once the run has finished, since the bus never
// publishes a dedicated "node succeeded" event.
func (m *Model) reconcile() {
	if m.outcome.Result == nil {
		return
	}
	for id, res := range m.outcome.Result.NodeResults {
		v := m.viewFor(id)
		switch res.Status {
		case runtime.StatusSucceeded:
			v.Status = "succeeded"
		case runtime.StatusRestarted:
			v.Status = "restarted"
		case runtime.StatusFailed, runtime.StatusCanceled:
			v.Status = "failed"
		case runtime.StatusContinuedWithoutNode:
			v.Status = "skipped"
		}
		if res.Err != nil {
			v.LastErr = res.Err
		}
	}
}
