package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridopt/core/events"
)

var schedule = []events.CommittedValue{
	{Part: "plant", Variable: "plant.activity(0)", T: 0, Value: 3},
	{Part: "flow (a --> b)", Variable: "grid.flow (a --> b)(0)", T: 0, Value: 0.25},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, schedule))
	want := "t,part,variable,value\n" +
		"0,plant,plant.activity(0),3\n" +
		"0,flow (a --> b),grid.flow (a --> b)(0),0.25\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, schedule[:1]))
	assert.JSONEq(t, `[{"part":"plant","variable":"plant.activity(0)","t":0,"value":3}]`, buf.String())
}
