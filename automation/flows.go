package automation

import (
	"strconv"
	"time"

	"ptrj.com/venus/core"
)

// Millware task register form contract. Field IDs come from the rendered
// ASPX page; the autocomplete inputs share a class and appear in DOM order
// employee, task, station, machine, expense.
const (
	TaskRegisterPath = "/en/PR/trx/frmPrTrxTaskRegisterDet.aspx"

	fieldTrxDate  = "#MainContent_txtTrxDate"
	fieldDocDate  = "#MainContent_txtDocDate"
	fieldHours    = "#MainContent_txtHours"
	radioRegular  = "#MainContent_rblOT_0"
	radioOvertime = "#MainContent_rblOT_1"
	buttonNew     = "#MainContent_btnNew"
)

const autocompleteSelector = "input.ui-autocomplete-input"

// settle is the pause after autocomplete input, giving the suggestion list
// time to appear before Tab confirms it.
const settle = 800 * time.Millisecond

// TaskRegisterReadyFlow waits until the form can take input.
func TaskRegisterReadyFlow(baseURL string) []Event {
	return []Event{
		Navigate{URL: baseURL + TaskRegisterPath},
		PopupDismiss{},
		WaitForElement{
			Target:  Target{Selector: fieldTrxDate},
			Timeout: 15 * time.Second,
		},
	}
}

// autocompleteTarget addresses the nth autocomplete input on the form.
func autocompleteTarget(n int) Target {
	return Target{
		Selector: autocompleteSelector + ":nth-of-type(" + strconv.Itoa(n) + ")",
		Alternatives: []string{
			autocompleteSelector,
		},
	}
}

// fillAutocomplete types a value and confirms the suggestion with Tab.
func fillAutocomplete(n int, value string) []Event {
	return []Event{
		Input{Target: autocompleteTarget(n), Text: value, Clear: true},
		Wait{Duration: settle},
		Keyboard{Key: "tab"},
		Wait{Duration: settle},
	}
}

// entryFlow fills and submits one task register entry: one transaction
// type, one hour amount.
func entryFlow(rec *core.StagingRecord, trxDate string, overtime bool, hours float64) []Event {
	cj := core.ParseChargeJob(rec.RawChargeJob)

	radio := radioRegular
	if overtime {
		radio = radioOvertime
	}

	events := []Event{
		Input{Target: Target{Selector: fieldTrxDate}, Text: trxDate, Clear: true},
		Keyboard{Key: "enter"},
		Wait{Duration: settle},
	}

	events = append(events, fillAutocomplete(1, rec.EmployeeName)...)
	events = append(events, fillAutocomplete(2, cj.Task)...)
	events = append(events, fillAutocomplete(3, cj.Station)...)
	events = append(events, fillAutocomplete(4, cj.Machine)...)
	events = append(events, fillAutocomplete(5, cj.Expense)...)

	events = append(events,
		Click{Target: Target{Selector: radio}},
		Wait{Duration: settle},
		Input{Target: Target{Selector: fieldHours}, Text: formatHours(hours), Clear: true},
		Keyboard{Key: "enter"},
		Wait{Duration: settle},
		Click{Target: Target{Selector: buttonNew, Text: "New"}},
		PopupDismiss{},
		Wait{Duration: 2 * settle},
	)

	return events
}

// TaskRegisterFlows builds the entry sequences for one staging record: a
// regular entry when regular hours are positive and an overtime entry when
// overtime hours are, in that order.
func TaskRegisterFlows(rec *core.StagingRecord, trxDate string) [][]Event {
	var flows [][]Event
	if rec.RegularHours > 0 {
		flows = append(flows, entryFlow(rec, trxDate, false, rec.RegularHours))
	}
	if rec.OvertimeHours > 0 {
		flows = append(flows, entryFlow(rec, trxDate, true, rec.OvertimeHours))
	}
	return flows
}

// formatHours renders hours the way the form expects: whole numbers bare,
// fractions with the minimum digits.
func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
