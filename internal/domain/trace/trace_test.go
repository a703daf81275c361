package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/cronos-labs/xdr/internal/domain/trace/mocks"
)

func TestBuffer_FIFOEvictionAtCapacity(t *testing.T) {
	b := NewBuffer(nil)

	for i := 0; i < Capacity+10; i++ {
		b.Append(Entry{AgentID: "a1", Path: "/x"})
	}

	assert.Equal(t, Capacity, b.Len())
}

func TestBuffer_RecentFiltersByAgentAndOrdersNewestFirst(t *testing.T) {
	b := NewBuffer(nil)

	b.Append(Entry{AgentID: "a1", Status: 200})
	b.Append(Entry{AgentID: "a2", Status: 402})
	b.Append(Entry{AgentID: "a1", Status: 500})

	recent := b.Recent("a1", 10)
	if assert.Len(t, recent, 2) {
		assert.Equal(t, 500, recent[0].Status)
		assert.Equal(t, 200, recent[1].Status)
	}
}

func TestBuffer_RecentRespectsLimit(t *testing.T) {
	b := NewBuffer(nil)

	for i := 0; i < 5; i++ {
		b.Append(Entry{AgentID: "a1"})
	}

	assert.Len(t, b.Recent("a1", 3), 3)
}

func TestBuffer_PublishesToSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)

	sink.EXPECT().Publish(gomock.Any()).Times(2)

	b := NewBuffer(sink)

	b.Append(Entry{AgentID: "a1"})
	b.Append(Entry{AgentID: "a1"})
}
