package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trinityinblue/kia-live/model"
)

func TestFormatGTFSTimeHandlesOrdinaryAndPastMidnightOffsets(t *testing.T) {
	assert.Equal(t, "09:05:00", model.FormatGTFSTime(9*time.Hour+5*time.Minute))
	assert.Equal(t, "25:10:00", model.FormatGTFSTime(25*time.Hour+10*time.Minute))
	assert.Equal(t, "00:00:00", model.FormatGTFSTime(0))
}

func TestStopTimeArrivalAndDepartureParseGTFSClock(t *testing.T) {
	st := model.StopTime{Arrival: "09:05:30", Departure: "09:06:10"}

	assert.Equal(t, 9*time.Hour+5*time.Minute+30*time.Second, st.ArrivalTime())
	assert.Equal(t, 9*time.Hour+6*time.Minute+10*time.Second, st.DepartureTime())
}

func TestStopTimeTimesHandlePastMidnightOffsets(t *testing.T) {
	st := model.StopTime{Arrival: "25:10:00"}
	assert.Equal(t, 25*time.Hour+10*time.Minute, st.ArrivalTime())
}

func TestParseGTFSTimeReturnsZeroForShortStrings(t *testing.T) {
	st := model.StopTime{Arrival: "09:05"}
	assert.Equal(t, time.Duration(0), st.ArrivalTime())
}
