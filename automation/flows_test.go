package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptrj.com/venus/core"
)

func sampleRecord() *core.StagingRecord {
	return &core.StagingRecord{
		ID:             "rec-1",
		EmployeeIDPtrj: "POM00214",
		EmployeeName:   "JONO SUSILO",
		Date:           "2025-06-12",
		RegularHours:   7,
		OvertimeHours:  1,
		RawChargeJob:   "(OC7190) BOILER OPERATION / STN-BLR (STATION BOILER) / BLR00000 (LABOUR COST) / L (LABOUR)",
	}
}

func TestTaskRegisterFlowsBothEntryTypes(t *testing.T) {
	flows := TaskRegisterFlows(sampleRecord(), "2025-05-12")
	require.Len(t, flows, 2)

	assert.True(t, clicksSelector(flows[0], radioRegular))
	assert.False(t, clicksSelector(flows[0], radioOvertime))
	assert.True(t, clicksSelector(flows[1], radioOvertime))

	assert.Equal(t, "7", inputFor(flows[0], fieldHours))
	assert.Equal(t, "1", inputFor(flows[1], fieldHours))
	assert.Equal(t, "2025-05-12", inputFor(flows[0], fieldTrxDate))
}

func TestTaskRegisterFlowsRegularOnly(t *testing.T) {
	rec := sampleRecord()
	rec.OvertimeHours = 0
	rec.RegularHours = 7.5

	flows := TaskRegisterFlows(rec, "2025-06-12")
	require.Len(t, flows, 1)
	assert.True(t, clicksSelector(flows[0], radioRegular))
	assert.Equal(t, "7.5", inputFor(flows[0], fieldHours))
}

func TestTaskRegisterFlowsOvertimeOnly(t *testing.T) {
	rec := sampleRecord()
	rec.RegularHours = 0

	flows := TaskRegisterFlows(rec, "2025-06-12")
	require.Len(t, flows, 1)
	assert.True(t, clicksSelector(flows[0], radioOvertime))
}

func TestTaskRegisterFlowFillsChargeComponents(t *testing.T) {
	flows := TaskRegisterFlows(sampleRecord(), "2025-05-12")
	require.NotEmpty(t, flows)

	inputs := allInputTexts(flows[0])
	assert.Contains(t, inputs, "JONO SUSILO")
	assert.Contains(t, inputs, "(OC7190) BOILER OPERATION")
	assert.Contains(t, inputs, "STN-BLR (STATION BOILER)")
	assert.Contains(t, inputs, "BLR00000 (LABOUR COST)")
	assert.Contains(t, inputs, "L (LABOUR)")
}

func TestTaskRegisterReadyFlow(t *testing.T) {
	events := TaskRegisterReadyFlow("http://millwarep3.rebinmas.com:8004")
	require.NotEmpty(t, events)

	nav, ok := events[0].(Navigate)
	require.True(t, ok)
	assert.Equal(t, "http://millwarep3.rebinmas.com:8004/en/PR/trx/frmPrTrxTaskRegisterDet.aspx", nav.URL)
}

func clicksSelector(events []Event, selector string) bool {
	for _, ev := range events {
		if c, ok := ev.(Click); ok && c.Target.Selector == selector {
			return true
		}
	}
	return false
}

func inputFor(events []Event, selector string) string {
	for _, ev := range events {
		if in, ok := ev.(Input); ok && in.Target.Selector == selector {
			return in.Text
		}
	}
	return ""
}

func allInputTexts(events []Event) []string {
	var texts []string
	for _, ev := range events {
		if in, ok := ev.(Input); ok {
			texts = append(texts, in.Text)
		}
	}
	return texts
}
