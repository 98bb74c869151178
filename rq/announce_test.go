package rq

import (
	"testing"

	"github.com/jacnel/bundledrefs/bundle"
	"github.com/stretchr/testify/assert"
)

func TestAnnouncementTable_NoActiveReaders(t *testing.T) {
	tbl := NewAnnouncementTable(4)
	assert.Equal(t, bundle.NullTimestamp, tbl.OldestActive())
}

func TestAnnouncementTable_SingleReader(t *testing.T) {
	tbl := NewAnnouncementTable(4)
	clk := NewClock()
	clk.Next()
	clk.Next()

	ts := tbl.StartTraversal(1, clk)
	assert.Equal(t, clk.Load(), ts)
	assert.Equal(t, ts, tbl.OldestActive())

	tbl.EndTraversal(1)
	assert.Equal(t, bundle.NullTimestamp, tbl.OldestActive())
}

func TestAnnouncementTable_ReturnsMinimumAcrossReaders(t *testing.T) {
	tbl := NewAnnouncementTable(3)
	clk := NewClock()

	tsA := tbl.StartTraversal(0, clk)
	clk.Next()
	clk.Next()
	tsB := tbl.StartTraversal(1, clk)

	assert.Less(t, tsA, tsB)
	assert.Equal(t, tsA, tbl.OldestActive())

	tbl.EndTraversal(0)
	assert.Equal(t, tsB, tbl.OldestActive())
}
